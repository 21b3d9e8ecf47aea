package types

import (
	"slices"
	"sort"
	"strings"

	"github.com/xtgo/set"
)

// Key returns a canonical string for h such that two types have the same
// Key if and only if they are structurally equal:
//   - bindings are followed,
//   - Record properties and Algebraic and Union members are order-independent,
//   - unbound Variables compare by name,
//   - Recursive placeholders compare by name only.
func (a *Arena) Key(h Handle) string {
	sb := &strings.Builder{}
	a.writeKey(sb, h)
	return sb.String()
}

// Equal reports structural equality, see Key
func (a *Arena) Equal(this, that Handle) bool {
	if this == that {
		return true
	}
	this, that = a.Resolve(this), a.Resolve(that)
	if this == that {
		return true
	}
	if a.node(this).kind != a.node(that).kind {
		return false
	}
	return a.Key(this) == a.Key(that)
}

func (a *Arena) writeKey(sb *strings.Builder, h Handle) {
	h = a.Resolve(h)
	n := a.node(h)
	switch n.kind {
	case KindSimple:
		sb.WriteString("S:")
		sb.WriteString(n.name)
	case KindRecursive:
		sb.WriteString("μ:")
		sb.WriteString(n.name)
	case KindVariable:
		sb.WriteString("V:")
		sb.WriteString(n.name)
	case KindFunction:
		sb.WriteString("F(")
		a.writeKey(sb, n.left)
		sb.WriteString(",")
		a.writeKey(sb, n.right)
		sb.WriteString(")")
	case KindParameterized:
		sb.WriteString("P(")
		a.writeKey(sb, n.left)
		a.writeKeys(sb, n.args, false)
		sb.WriteString(")")
	case KindRecord:
		sb.WriteString("R:")
		sb.WriteString(n.name)
		a.writeKeys(sb, n.args, false)
		props := make([]string, len(n.props))
		for i, p := range n.props {
			props[i] = p.Name + ":" + a.Key(p.Type)
		}
		slices.Sort(props)
		sb.WriteString("{")
		sb.WriteString(strings.Join(props, ","))
		sb.WriteString("}")
	case KindAlgebraic:
		sb.WriteString("A:")
		sb.WriteString(n.name)
		a.writeKeys(sb, n.args, false)
		a.writeKeys(sb, n.members, true)
	case KindUnion:
		sb.WriteString("U")
		a.writeKeys(sb, n.members, true)
	default:
		panic(unknownVariant(a, n.kind, "key"))
	}
}

func (a *Arena) writeKeys(sb *strings.Builder, hs []Handle, unordered bool) {
	keys := make([]string, len(hs))
	for i, h := range hs {
		keys[i] = a.Key(h)
	}
	if unordered {
		slices.Sort(keys)
	}
	sb.WriteString("[")
	sb.WriteString(strings.Join(keys, ";"))
	sb.WriteString("]")
}

// byKey sorts handles by their structural Key so that set.Uniq can drop
// structural duplicates
type byKey struct {
	handles []Handle
	keys    []string
}

func (s byKey) Len() int           { return len(s.handles) }
func (s byKey) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s byKey) Swap(i, j int) {
	s.handles[i], s.handles[j] = s.handles[j], s.handles[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}

// sortedSet deduplicates hs structurally and sorts it by display name,
// which is the order members of unions and algebraic types are kept in
func (a *Arena) sortedSet(hs []Handle) []Handle {
	data := byKey{handles: slices.Clone(hs), keys: make([]string, len(hs))}
	for i, h := range data.handles {
		data.keys[i] = a.Key(h)
	}
	sort.Sort(data)
	size := set.Uniq(data)
	unique := data.handles[:size]
	names := make(map[Handle]string, size)
	for _, h := range unique {
		names[h] = a.displayName(h)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return names[unique[i]] < names[unique[j]]
	})
	return unique
}

// displayName is the name members are ordered by: the declared name for
// nominal types, and the printed type otherwise
func (a *Arena) displayName(h Handle) string {
	n := a.node(a.Resolve(h))
	switch n.kind {
	case KindSimple, KindRecord, KindAlgebraic, KindRecursive:
		return n.name
	default:
		return a.Show(h)
	}
}
