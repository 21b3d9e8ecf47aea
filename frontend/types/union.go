package types

import "slices"

// Bind returns a Union that also contains t.
//
// u is returned unchanged when t is structurally equal to u or to one of its
// members. If u is not a Union, it is treated as a single-member one. Unions
// are never mutated: growing one allocates a new node.
func (a *Arena) Bind(u, t Handle) Handle {
	if a.Equal(u, t) {
		return u
	}
	members := a.Decompose(u)
	added := false
	for _, candidate := range a.Decompose(t) {
		if a.Equal(u, candidate) || slices.ContainsFunc(members, func(m Handle) bool { return a.Equal(m, candidate) }) {
			continue
		}
		members = append(members, candidate)
		added = true
	}
	if !added {
		return u
	}
	return a.alloc(node{kind: KindUnion, members: a.sortedSet(members)})
}
