package ilerr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cottand/iletype/frontend/ast"
)

// enableDebugErrorPrinting makes errors include where they were raised when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	TypeMismatch
	Parse
	UnresolvedReference
	NotAFunction
	SignatureMismatch
	UnboundEscape
	DuplicateDeclaration
	UndefinedType
	TypeArity
)

type IleError interface {
	Error() string
	Code() ErrCode
	ast.Positioner

	withStack([]byte) IleError
	getStack() []byte
}

func FormatWithCode(e IleError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			stack = strings.Split(stack, "\n")[6]
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E IleError](err E) IleError {
	return err.withStack(debug.Stack())
}

type Unclassified struct {
	From error
	ast.Positioner
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Unwrap() error    { return e.From }
func (e Unclassified) Code() ErrCode    { return None }
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

// NewTypeMismatch is reported where a value of type Found is used where
// Expected is expected. Types are carried already printed.
type NewTypeMismatch struct {
	ast.Positioner
	Expected string
	Found    string
	// What describes the offending expression, like "argument of f"
	What  string
	stack []byte
}

func (e NewTypeMismatch) Error() string {
	msg := fmt.Sprintf("type mismatch: expected type '%v', but found a different type '%v'", e.Expected, e.Found)
	if e.What != "" {
		msg += " in " + e.What
	}
	return msg
}
func (e NewTypeMismatch) Code() ErrCode    { return TypeMismatch }
func (e NewTypeMismatch) getStack() []byte { return e.stack }
func (e NewTypeMismatch) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewParse struct {
	ast.Positioner
	ParserMessage string
	Hint          string
	stack         []byte
}

func (e NewParse) Error() string {
	if e.Hint != "" {
		return e.ParserMessage + " (" + e.Hint + ")"
	}
	return e.ParserMessage
}
func (e NewParse) Code() ErrCode    { return Parse }
func (e NewParse) getStack() []byte { return e.stack }
func (e NewParse) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

// NewUnresolvedReference is fatal to the compilation unit that raised it:
// no scope, local or imported, declares Name
type NewUnresolvedReference struct {
	ast.Positioner
	Name string
	// Module is the module being compiled when the reference was found
	Module string
	stack  []byte
}

func (e NewUnresolvedReference) Code() ErrCode { return UnresolvedReference }
func (e NewUnresolvedReference) Error() string {
	return fmt.Sprintf("unresolved reference '%s' in module %s", e.Name, e.Module)
}
func (e NewUnresolvedReference) getStack() []byte { return e.stack }
func (e NewUnresolvedReference) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewNotAFunction struct {
	ast.Positioner
	Found string
	stack []byte
}

func (e NewNotAFunction) Code() ErrCode { return NotAFunction }
func (e NewNotAFunction) Error() string {
	return fmt.Sprintf("cannot apply a value of type '%s': it is not a function", e.Found)
}
func (e NewNotAFunction) getStack() []byte { return e.stack }
func (e NewNotAFunction) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewSignatureMismatch struct {
	ast.Positioner
	Name     string
	Declared string
	Inferred string
	stack    []byte
}

func (e NewSignatureMismatch) Code() ErrCode { return SignatureMismatch }
func (e NewSignatureMismatch) Error() string {
	return fmt.Sprintf("'%s' is declared as '%s', but its definition has type '%s'", e.Name, e.Declared, e.Inferred)
}
func (e NewSignatureMismatch) getStack() []byte { return e.stack }
func (e NewSignatureMismatch) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

// NewUnboundEscape is reported when the type of a public declaration still
// contains type variables nothing constrained
type NewUnboundEscape struct {
	ast.Positioner
	Name      string
	Type      string
	Variables []string
	stack     []byte
}

func (e NewUnboundEscape) Code() ErrCode { return UnboundEscape }
func (e NewUnboundEscape) Error() string {
	return fmt.Sprintf("type '%s' of public declaration '%s' has unresolved type variables %s, add a type signature",
		e.Type, e.Name, strings.Join(e.Variables, ", "))
}
func (e NewUnboundEscape) getStack() []byte { return e.stack }
func (e NewUnboundEscape) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewDuplicateDeclaration struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewDuplicateDeclaration) Code() ErrCode { return DuplicateDeclaration }
func (e NewDuplicateDeclaration) Error() string {
	return fmt.Sprintf("'%s' is declared more than once", e.Name)
}
func (e NewDuplicateDeclaration) getStack() []byte { return e.stack }
func (e NewDuplicateDeclaration) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewUndefinedType struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewUndefinedType) Code() ErrCode { return UndefinedType }
func (e NewUndefinedType) Error() string {
	return fmt.Sprintf("type '%s' is not defined", e.Name)
}
func (e NewUndefinedType) getStack() []byte { return e.stack }
func (e NewUndefinedType) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}

type NewTypeArity struct {
	ast.Positioner
	Name     string
	Expected int
	Found    int
	stack    []byte
}

func (e NewTypeArity) Code() ErrCode { return TypeArity }
func (e NewTypeArity) Error() string {
	return fmt.Sprintf("type '%s' takes %d type arguments, but %d were given", e.Name, e.Expected, e.Found)
}
func (e NewTypeArity) getStack() []byte { return e.stack }
func (e NewTypeArity) withStack(stack []byte) IleError {
	e.stack = stack
	return e
}
