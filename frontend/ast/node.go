// Package ast is the syntax tree of a module, as produced by the parser.
package ast

// File is a parsed module
type File struct {
	Range
	Module      string
	Imports     []Import
	Data        []*DataDecl
	Signatures  []*Signature
	Definitions []*Definition
}

type Import struct {
	Range
	Module string
}

// DataDecl declares a sum type, like
//
//	data Tree a = Leaf | Node a (Tree a) (Tree a)
type DataDecl struct {
	Range
	Name         string
	Params       []string
	Constructors []*Constructor
}

// Constructor is one member of a DataDecl. Its fields are either all named
// (written in braces) or all positional, in which case their Name is empty.
type Constructor struct {
	Range
	Name   string
	Fields []Field
}

type Field struct {
	Range
	Name string
	Type Type
}

// Signature declares the type of a top-level name. Several signatures for
// the same name declare overloads.
type Signature struct {
	Range
	Name string
	Type Type
}

// Definition gives a top-level name a value: `name params... = Body`
type Definition struct {
	Range
	Name   string
	Params []Param
	Body   Expr
}

type Param struct {
	Range
	Name string
}
