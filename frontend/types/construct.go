package types

import (
	"slices"
	"strconv"
)

// names of the built-in Simple types
const (
	IntName    = "Int"
	FloatName  = "Float"
	StringName = "String"
	BoolName   = "Bool"
	UnitName   = "Unit"
	// ErrorName is the placeholder given to expressions that failed to type
	// check, so that one mistake does not cascade into many diagnostics
	ErrorName = "<error>"

	tuplePrefix = "Tuple"
)

func (a *Arena) Simple(name string) Handle {
	return a.alloc(node{kind: KindSimple, name: name})
}

func (a *Arena) IntType() Handle    { return a.Simple(IntName) }
func (a *Arena) StringType() Handle { return a.Simple(StringName) }
func (a *Arena) UnitType() Handle   { return a.Simple(UnitName) }
func (a *Arena) BoolType() Handle   { return a.Simple(BoolName) }
func (a *Arena) ErrorType() Handle  { return a.Simple(ErrorName) }

// Function is the type of a single-argument function
func (a *Arena) Function(argument, result Handle) Handle {
	return a.alloc(node{kind: KindFunction, left: argument, right: result})
}

// Functions builds the curried function taking every type but the last as
// an argument, and returning the last one
func (a *Arena) Functions(types ...Handle) Handle {
	if len(types) == 0 {
		panic("Functions needs at least a result type")
	}
	ret := types[len(types)-1]
	for i := len(types) - 2; i >= 0; i-- {
		ret = a.Function(types[i], ret)
	}
	return ret
}

func (a *Arena) Parameterized(base Handle, params ...Handle) Handle {
	return a.alloc(node{kind: KindParameterized, left: base, args: slices.Clone(params)})
}

// Record builds a product type. Properties with a repeated name are dropped,
// keeping the first occurrence.
func (a *Arena) Record(name string, args []Handle, props ...Property) Handle {
	return a.alloc(node{kind: KindRecord, name: name, args: slices.Clone(args), props: dedupProperties(props)})
}

// Member builds a Record declared as a member of the Algebraic named super
func (a *Arena) Member(super, name string, args []Handle, props ...Property) Handle {
	return a.alloc(node{kind: KindRecord, name: name, super: super, args: slices.Clone(args), props: dedupProperties(props)})
}

// Algebraic builds a sum type. Members are deduplicated and sorted by name.
func (a *Arena) Algebraic(name string, args []Handle, members ...Handle) Handle {
	return a.alloc(node{kind: KindAlgebraic, name: name, args: slices.Clone(args), members: a.sortedSet(members)})
}

// Recursive is a placeholder for the enclosing Algebraic or Record named name
func (a *Arena) Recursive(name string) Handle {
	return a.alloc(node{kind: KindRecursive, name: name})
}

// Variable allocates a new Unbound variable.
// Two unbound variables with the same name are considered equal, see FreshVariable.
func (a *Arena) Variable(name string) Handle {
	return a.alloc(node{kind: KindVariable, name: name})
}

// FreshVariable allocates an Unbound variable with a name no other variable
// of this Arena has
func (a *Arena) FreshVariable(hint string) Handle {
	if hint == "" {
		hint = "t"
	}
	a.fresh++
	return a.Variable(hint + "'" + strconv.FormatUint(a.fresh, 10))
}

// BoundVariable allocates a variable that is already bound to target
func (a *Arena) BoundVariable(target Handle) Handle {
	a.fresh++
	return a.alloc(node{kind: KindVariable, name: "t'" + strconv.FormatUint(a.fresh, 10), bound: true, right: target})
}

// Union builds the type standing for any of members. Nested unions are
// flattened and duplicates dropped; a single remaining member is returned as is.
func (a *Arena) Union(members ...Handle) Handle {
	flat := make([]Handle, 0, len(members))
	for _, m := range members {
		flat = append(flat, a.Decompose(m)...)
	}
	flat = a.sortedSet(flat)
	if len(flat) == 1 {
		return flat[0]
	}
	return a.alloc(node{kind: KindUnion, members: flat})
}

// TupleOf builds an anonymous Record named after the arity of types
func (a *Arena) TupleOf(types ...Handle) Handle {
	props := make([]Property, len(types))
	for i, t := range types {
		props[i] = Property{Name: PositionalName(i), Type: t}
	}
	return a.Record(TupleName(len(types)), nil, props...)
}

// TupleName is the name of the Record used for tuples of the given arity
func TupleName(arity int) string {
	return tuplePrefix + strconv.Itoa(arity)
}

// PositionalName is the name of the i-th (zero-based) unnamed property of a Record
func PositionalName(i int) string {
	return "_" + strconv.Itoa(i+1)
}

func isPositional(props []Property) bool {
	for i, p := range props {
		if p.Name != PositionalName(i) {
			return false
		}
	}
	return true
}

func isTupleName(name string, arity int) bool {
	return name == TupleName(arity)
}

func dedupProperties(props []Property) []Property {
	ret := make([]Property, 0, len(props))
	for _, p := range props {
		if !slices.ContainsFunc(ret, func(existing Property) bool { return existing.Name == p.Name }) {
			ret = append(ret, p)
		}
	}
	return ret
}

// ArgumentOf returns the argument type of a function type
func (a *Arena) ArgumentOf(h Handle) Handle {
	n := a.node(a.Resolve(h))
	if n.kind != KindFunction {
		return NoType
	}
	return n.left
}

// ResultOf returns the result type of a function type
func (a *Arena) ResultOf(h Handle) Handle {
	n := a.node(a.Resolve(h))
	if n.kind != KindFunction {
		return NoType
	}
	return n.right
}

func (a *Arena) IsFunction(h Handle) bool {
	return a.node(a.Resolve(h)).kind == KindFunction
}

// IsInvokable reports whether h is a function taking Unit, which is how
// zero-argument entry points are typed
func (a *Arena) IsInvokable(h Handle) bool {
	if !a.IsFunction(h) {
		return false
	}
	arg := a.node(a.Resolve(a.ArgumentOf(h)))
	return arg.kind == KindSimple && arg.name == UnitName
}

// IsError reports whether h is the placeholder type of a failed expression
func (a *Arena) IsError(h Handle) bool {
	n := a.node(a.Resolve(h))
	return n.kind == KindSimple && n.name == ErrorName
}
