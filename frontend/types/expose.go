package types

import (
	"slices"

	"github.com/hashicorp/go-set/v2"
)

// Resolve follows the binding chain of h, and returns the first node that is
// not a bound Variable
func (a *Arena) Resolve(h Handle) Handle {
	for {
		n := a.node(h)
		if n.kind != KindVariable || !n.bound {
			return h
		}
		h = n.right
	}
}

// Decompose returns the alternatives h stands for: the members of a Union,
// or h itself for any other type
func (a *Arena) Decompose(h Handle) []Handle {
	n := a.node(h)
	switch n.kind {
	case KindUnion:
		return slices.Clone(n.members)
	case KindVariable:
		if n.bound {
			return a.Decompose(n.right)
		}
		return []Handle{h}
	default:
		return []Handle{h}
	}
}

// Expose returns h with every transitively bound Variable replaced by its
// target. Unbound variables are kept. Nodes that contain no bound variables
// are shared rather than copied.
func (a *Arena) Expose(h Handle) Handle {
	h = a.Resolve(h)
	return a.doMap(h, a.Expose)
}

// doMap rebuilds h with f applied to its direct children. h itself is
// returned if f changed none of them.
func (a *Arena) doMap(h Handle, f func(Handle) Handle) Handle {
	n := a.node(h)
	switch n.kind {
	case KindSimple, KindRecursive, KindVariable:
		return h
	case KindFunction:
		left, right := n.left, n.right
		newLeft, newRight := f(left), f(right)
		if newLeft == left && newRight == right {
			return h
		}
		return a.Function(newLeft, newRight)
	case KindParameterized:
		base, params := n.left, n.args
		newBase := f(base)
		newParams, changed := mapHandles(params, f)
		if !changed && newBase == base {
			return h
		}
		return a.Parameterized(newBase, newParams...)
	case KindRecord:
		name, super, args, props := n.name, n.super, n.args, n.props
		newArgs, changedArgs := mapHandles(args, f)
		newProps := make([]Property, len(props))
		changedProps := false
		for i, p := range props {
			newProps[i] = Property{Name: p.Name, Type: f(p.Type)}
			changedProps = changedProps || newProps[i].Type != p.Type
		}
		if !changedArgs && !changedProps {
			return h
		}
		return a.Member(super, name, newArgs, newProps...)
	case KindAlgebraic:
		name, args, members := n.name, n.args, n.members
		newArgs, changedArgs := mapHandles(args, f)
		newMembers, changedMembers := mapHandles(members, f)
		if !changedArgs && !changedMembers {
			return h
		}
		return a.Algebraic(name, newArgs, newMembers...)
	case KindUnion:
		newMembers, changed := mapHandles(n.members, f)
		if !changed {
			return h
		}
		return a.Union(newMembers...)
	default:
		panic(unknownVariant(a, n.kind, "map"))
	}
}

// mapHandles must not keep pointers into the arena: f may allocate
func mapHandles(hs []Handle, f func(Handle) Handle) ([]Handle, bool) {
	ret := make([]Handle, len(hs))
	changed := false
	for i, h := range hs {
		ret[i] = f(h)
		changed = changed || ret[i] != h
	}
	return ret, changed
}

// children returns the direct sub-terms of h, without following bindings
func (a *Arena) children(h Handle) []Handle {
	n := a.node(h)
	switch n.kind {
	case KindSimple, KindRecursive:
		return nil
	case KindVariable:
		if n.bound {
			return []Handle{n.right}
		}
		return nil
	case KindFunction:
		return []Handle{n.left, n.right}
	case KindParameterized:
		return append([]Handle{n.left}, n.args...)
	case KindRecord:
		ret := slices.Clone(n.args)
		for _, p := range n.props {
			ret = append(ret, p.Type)
		}
		return ret
	case KindAlgebraic:
		return append(slices.Clone(n.args), n.members...)
	case KindUnion:
		return slices.Clone(n.members)
	default:
		panic(unknownVariant(a, n.kind, "children"))
	}
}

// Occurs reports whether variable v appears anywhere in h, following bindings.
// v itself is compared, not its target: sharing the target of a bound v is
// not containment.
func (a *Arena) Occurs(v, h Handle) bool {
	visited := set.New[Handle](8)
	var visit func(Handle) bool
	visit = func(h Handle) bool {
		if h == v {
			return true
		}
		if !visited.Insert(h) {
			return false
		}
		for _, child := range a.children(h) {
			if visit(child) {
				return true
			}
		}
		return false
	}
	return visit(h)
}

// FreeVariables returns the Unbound variables reachable from h, in order of
// first appearance
func (a *Arena) FreeVariables(h Handle) []Handle {
	visited := set.New[Handle](8)
	var free []Handle
	var visit func(Handle)
	visit = func(h Handle) {
		if !visited.Insert(h) {
			return
		}
		n := a.node(h)
		if n.kind == KindVariable && !n.bound {
			free = append(free, h)
			return
		}
		for _, child := range a.children(h) {
			visit(child)
		}
	}
	visit(h)
	return free
}
