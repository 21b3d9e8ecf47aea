package types

// Unroll returns a copy of child where every Recursive placeholder naming
// parent is replaced by parent itself. If parent is generic and child carries
// as many type arguments as parent, the replacement is parent with its
// arguments substituted by child's.
//
// Only one level is expanded: the placeholders inside the replacement are left
// alone, and consumers that need to go deeper call Unroll again.
func (a *Arena) Unroll(child, parent Handle) Handle {
	parent = a.Resolve(parent)
	child = a.Resolve(child)
	name := a.node(parent).name
	replacement := a.instantiateWith(parent, a.node(child).args)
	var visit func(Handle) Handle
	visit = func(h Handle) Handle {
		h = a.Resolve(h)
		n := a.node(h)
		if n.kind == KindRecursive && n.name == name {
			return replacement
		}
		return a.doMap(h, visit)
	}
	return visit(child)
}

// Reroll is the inverse of Unroll: nested occurrences of the Algebraic or
// Record named like parent are collapsed back into Recursive placeholders.
// h itself is never collapsed.
func (a *Arena) Reroll(h, parent Handle) Handle {
	name := a.node(a.Resolve(parent)).name
	var visit func(Handle) Handle
	visit = func(h Handle) Handle {
		h = a.Resolve(h)
		n := a.node(h)
		if (n.kind == KindAlgebraic || n.kind == KindRecord) && n.name == name {
			return a.Recursive(name)
		}
		return a.doMap(h, visit)
	}
	return a.doMap(a.Resolve(h), visit)
}

// Apply instantiates a generic Algebraic or Record with args in place of its
// own type arguments. Types whose arity does not match args are returned
// unchanged.
func (a *Arena) Apply(generic Handle, args ...Handle) Handle {
	return a.instantiateWith(a.Resolve(generic), args)
}

func (a *Arena) instantiateWith(generic Handle, args []Handle) Handle {
	params := a.node(generic).args
	if len(params) == 0 || len(params) != len(args) {
		return generic
	}
	table := make(Instantiation, len(params))
	for i, param := range params {
		param = a.Resolve(param)
		if a.node(param).kind == KindVariable {
			table[param] = args[i]
		}
	}
	return a.Substitute(generic, table)
}
