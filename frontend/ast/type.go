package ast

import "strings"

// Type is a type expression as written in a signature or a data declaration
type Type interface {
	Positioner
	typeNode()
}

var (
	_ Type = (*TypeName)(nil)
	_ Type = (*TypeVar)(nil)
	_ Type = (*FuncType)(nil)
	_ Type = (*TupleType)(nil)
	_ Type = (*UnitType)(nil)
)

// TypeName refers to a declared type, applied to Args
type TypeName struct {
	Range
	Name string
	Args []Type
}

// TypeVar is a lowercase type parameter
type TypeVar struct {
	Range
	Name string
}

type FuncType struct {
	Range
	Arg, Result Type
}

type TupleType struct {
	Range
	Elems []Type
}

type UnitType struct {
	Range
}

func (*TypeName) typeNode()  {}
func (*TypeVar) typeNode()   {}
func (*FuncType) typeNode()  {}
func (*TupleType) typeNode() {}
func (*UnitType) typeNode()  {}

// TypeString prints t back in source form
func TypeString(t Type) string {
	switch t := t.(type) {
	case *TypeName:
		parts := []string{t.Name}
		for _, arg := range t.Args {
			s := TypeString(arg)
			if _, ok := arg.(*FuncType); ok {
				s = "(" + s + ")"
			} else if name, ok := arg.(*TypeName); ok && len(name.Args) > 0 {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " ")
	case *TypeVar:
		return t.Name
	case *FuncType:
		arg := TypeString(t.Arg)
		if _, ok := t.Arg.(*FuncType); ok {
			arg = "(" + arg + ")"
		}
		return arg + " -> " + TypeString(t.Result)
	case *TupleType:
		elems := make([]string, len(t.Elems))
		for i, elem := range t.Elems {
			elems[i] = TypeString(elem)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *UnitType:
		return "()"
	default:
		return "<unknown>"
	}
}
