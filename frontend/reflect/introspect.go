package reflect

import (
	"github.com/cottand/iletype/frontend/types"
)

// Introspector gives a view of an algebraic or record type where members
// are unrolled one level at a time, when they are accessed.
type Introspector struct {
	arena *types.Arena
	typ   types.Handle
}

func Introspect(arena *types.Arena, h types.Handle) *Introspector {
	return &Introspector{arena: arena, typ: arena.Expose(h)}
}

// Info is the TypeInfo of the introspected type, with placeholders left in place
func (i *Introspector) Info() TypeInfo {
	return transform(i.arena, i.typ)
}

// Members lists the names of the members of an algebraic type, in display order
func (i *Introspector) Members() []QName {
	if i.arena.Kind(i.typ) != types.KindAlgebraic {
		return nil
	}
	members := i.arena.Members(i.typ)
	names := make([]QName, len(members))
	for j, m := range members {
		names[j] = QName(i.arena.Name(i.arena.Resolve(m)))
	}
	return names
}

// Member returns the member called name, with the placeholders that refer to
// the introspected type replaced by the type itself. The second result is
// false if there is no such member.
func (i *Introspector) Member(name QName) (TypeInfo, bool) {
	for _, m := range i.arena.Members(i.typ) {
		m = i.arena.Resolve(m)
		if QName(i.arena.Name(m)) != name {
			continue
		}
		return transform(i.arena, i.arena.Unroll(m, i.typ)), true
	}
	return TypeInfo{}, false
}

// Unrolled is the introspected type itself unrolled one level, which for a
// record refers to itself, and is the type unchanged otherwise
func (i *Introspector) Unrolled() TypeInfo {
	if i.arena.Kind(i.typ) != types.KindRecord {
		return i.Info()
	}
	return transform(i.arena, i.arena.Unroll(i.typ, i.typ))
}
