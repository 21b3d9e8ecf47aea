package ast

import (
	"strconv"
	"strings"
)

// Expr is implemented by every expression node
type Expr interface {
	Positioner
	// Describe is what to call this expression in error messages
	Describe() string
	exprNode()
}

var (
	_ Expr = (*IntLiteral)(nil)
	_ Expr = (*FloatLiteral)(nil)
	_ Expr = (*StringLiteral)(nil)
	_ Expr = (*UnitLiteral)(nil)
	_ Expr = (*Ident)(nil)
	_ Expr = (*Tuple)(nil)
	_ Expr = (*Apply)(nil)
	_ Expr = (*Lambda)(nil)
	_ Expr = (*If)(nil)
)

type IntLiteral struct {
	Range
	Value string
}

type FloatLiteral struct {
	Range
	Value string
}

type StringLiteral struct {
	Range
	// Value is unquoted
	Value string
}

type UnitLiteral struct {
	Range
}

type Ident struct {
	Range
	Name string
}

type Tuple struct {
	Range
	Elems []Expr
}

// Apply is the application of Func to a single Arg. Infix operators are
// parsed as the application of the operator to both of its operands.
type Apply struct {
	Range
	Func Expr
	Arg  Expr
}

type Lambda struct {
	Range
	Params []Param
	Body   Expr
}

type If struct {
	Range
	Cond, Then, Else Expr
}

func (*IntLiteral) exprNode()    {}
func (*FloatLiteral) exprNode()  {}
func (*StringLiteral) exprNode() {}
func (*UnitLiteral) exprNode()   {}
func (*Ident) exprNode()         {}
func (*Tuple) exprNode()         {}
func (*Apply) exprNode()         {}
func (*Lambda) exprNode()        {}
func (*If) exprNode()            {}

func (e *IntLiteral) Describe() string    { return "int literal" }
func (e *FloatLiteral) Describe() string  { return "float literal" }
func (e *StringLiteral) Describe() string { return "string literal" }
func (e *UnitLiteral) Describe() string   { return "unit" }
func (e *Ident) Describe() string         { return "variable " + e.Name }
func (e *Tuple) Describe() string         { return "tuple" }
func (e *Apply) Describe() string         { return "function call" }
func (e *Lambda) Describe() string        { return "function" }
func (e *If) Describe() string            { return "if expression" }

// ExprString prints e back in source form, fully parenthesized
func ExprString(e Expr) string {
	switch e := e.(type) {
	case *IntLiteral:
		return e.Value
	case *FloatLiteral:
		return e.Value
	case *StringLiteral:
		return strconv.Quote(e.Value)
	case *UnitLiteral:
		return "()"
	case *Ident:
		if IsOperator(e.Name) {
			return "(" + e.Name + ")"
		}
		return e.Name
	case *Tuple:
		elems := make([]string, len(e.Elems))
		for i, elem := range e.Elems {
			elems[i] = ExprString(elem)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *Apply:
		return "(" + ExprString(e.Func) + " " + ExprString(e.Arg) + ")"
	case *Lambda:
		params := make([]string, len(e.Params))
		for i, p := range e.Params {
			params[i] = p.Name
		}
		return "(\\" + strings.Join(params, " ") + " -> " + ExprString(e.Body) + ")"
	case *If:
		return "(if " + ExprString(e.Cond) + " then " + ExprString(e.Then) + " else " + ExprString(e.Else) + ")"
	default:
		return "<unknown>"
	}
}

// IsOperator reports whether name is made of operator symbols, like `+`
func IsOperator(name string) bool {
	return name != "" && strings.Trim(name, OperatorChars) == ""
}

// OperatorChars are the characters infix operators are made of
const OperatorChars = "+-*/<>=!&|^%"
