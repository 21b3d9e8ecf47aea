package types

import (
	"strings"
)

const (
	unionPrecedence    uint16 = 5
	functionPrecedence uint16 = 10
	atomPrecedence     uint16 = 20
)

// Show prints h the way it would be written in source, following bindings
func (a *Arena) Show(h Handle) string {
	return a.ShowIn(h, 0)
}

// ShowIn prints h, parenthesizing it if it binds less tightly than outerPrecedence
func (a *Arena) ShowIn(h Handle, outerPrecedence uint16) string {
	h = a.Resolve(h)
	n := a.node(h)
	switch n.kind {
	case KindSimple, KindRecursive, KindVariable:
		return n.name
	case KindFunction:
		s := a.ShowIn(n.left, functionPrecedence+1) + " -> " + a.ShowIn(n.right, functionPrecedence)
		return parenthesize(s, functionPrecedence, outerPrecedence)
	case KindParameterized:
		return a.ShowIn(n.left, atomPrecedence) + a.showArgs(n.args)
	case KindRecord:
		return a.showRecord(n)
	case KindAlgebraic:
		return n.name + a.showArgs(n.args)
	case KindUnion:
		parts := make([]string, len(n.members))
		for i, m := range n.members {
			parts[i] = a.ShowIn(m, functionPrecedence+1)
		}
		return parenthesize(strings.Join(parts, " | "), unionPrecedence, outerPrecedence)
	default:
		panic(unknownVariant(a, n.kind, "show"))
	}
}

// ShowDefinition prints an Algebraic together with its members, one level deep
func (a *Arena) ShowDefinition(h Handle) string {
	h = a.Resolve(h)
	n := a.node(h)
	if n.kind != KindAlgebraic {
		return a.Show(h)
	}
	members := make([]string, len(n.members))
	for i, m := range n.members {
		members[i] = a.Show(m)
	}
	return a.Show(h) + " = " + strings.Join(members, " | ")
}

func (a *Arena) showRecord(n *node) string {
	if isTupleName(n.name, len(n.props)) && isPositional(n.props) {
		parts := make([]string, len(n.props))
		for i, p := range n.props {
			parts[i] = a.ShowIn(p.Type, 0)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	sb := strings.Builder{}
	sb.WriteString(n.name)
	sb.WriteString(a.showArgs(n.args))
	if len(n.props) == 0 {
		return sb.String()
	}
	if isPositional(n.props) {
		sb.WriteString("(")
		for i, p := range n.props {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.ShowIn(p.Type, 0))
		}
		sb.WriteString(")")
		return sb.String()
	}
	sb.WriteString("{")
	for i, p := range n.props {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		sb.WriteString(a.ShowIn(p.Type, 0))
	}
	sb.WriteString("}")
	return sb.String()
}

func (a *Arena) showArgs(args []Handle) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = a.ShowIn(arg, 0)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func parenthesize(s string, precedence, outerPrecedence uint16) string {
	if outerPrecedence > precedence {
		return "(" + s + ")"
	}
	return s
}
