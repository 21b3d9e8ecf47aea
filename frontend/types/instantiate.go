package types

// Instantiation records, for one generic copy, which variable each original
// Unbound variable was replaced with. It is keyed by the original handle.
type Instantiation map[Handle]Handle

// GenericCopy returns a copy of h where every Unbound variable is replaced by
// a newly allocated one, so that binding the copy never affects h or any
// other copy. Repeated occurrences of the same variable map to the same fresh
// variable through table, which is filled as a side effect.
//
// Bound variables are copied by copying their target. Parts of h that contain
// no Unbound variable are shared with h.
func (a *Arena) GenericCopy(h Handle, table Instantiation) Handle {
	if table == nil {
		table = make(Instantiation)
	}
	return a.genericCopy(h, table, true)
}

// Substitute returns a copy of h where the Unbound variables that are keys of
// table are replaced by their value. Other variables are kept as they are.
func (a *Arena) Substitute(h Handle, table Instantiation) Handle {
	if len(table) == 0 {
		return h
	}
	return a.genericCopy(h, table, false)
}

func (a *Arena) genericCopy(h Handle, table Instantiation, freshen bool) Handle {
	h = a.Resolve(h)
	n := a.node(h)
	if n.kind == KindVariable {
		if replacement, ok := table[h]; ok {
			return replacement
		}
		if !freshen {
			return h
		}
		fresh := a.FreshVariable(baseName(n.name))
		table[h] = fresh
		return fresh
	}
	return a.doMap(h, func(child Handle) Handle {
		return a.genericCopy(child, table, freshen)
	})
}

// baseName strips the suffix FreshVariable adds, so that copies of copies
// keep a readable name
func baseName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '\'' {
			return name[:i]
		}
	}
	return name
}
