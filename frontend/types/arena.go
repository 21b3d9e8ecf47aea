package types

import (
	"fmt"
	"log/slog"
	"math"

	"fortio.org/safecast"
	"github.com/cottand/iletype/internal/log"
	"github.com/google/uuid"
)

var logger = log.DefaultLogger.With("section", "types")

// Handle addresses a type node inside the Arena that allocated it.
// Handles from different arenas must never be mixed.
type Handle uint32

// NoType is returned by queries that have no answer, like ArgumentOf on a
// type that is not a function
const NoType Handle = math.MaxUint32

// Kind is the variant tag of a type node
type Kind uint8

const (
	_ Kind = iota
	KindSimple
	KindFunction
	KindParameterized
	KindRecord
	KindAlgebraic
	KindRecursive
	KindUnion
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindFunction:
		return "function"
	case KindParameterized:
		return "parameterized"
	case KindRecord:
		return "record"
	case KindAlgebraic:
		return "algebraic"
	case KindRecursive:
		return "recursive"
	case KindUnion:
		return "union"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Property is a named field of a Record
type Property struct {
	Name string
	Type Handle
}

type node struct {
	kind Kind
	name string

	// left is the argument of a Function, or the base of a Parameterized
	left Handle
	// right is the result of a Function, or the target of a bound Variable
	right Handle
	bound bool

	// args holds the parameters of a Parameterized,
	// or the type arguments of a Record or Algebraic
	args    []Handle
	props   []Property
	members []Handle
	// super is the name of the Algebraic a Record is a member of, if any
	super string
}

type undo struct {
	at   Handle
	prev node
}

// Mark is a point in an Arena's history that can be rolled back to
type Mark struct {
	nodes int
	trail int
}

// Arena owns every type node of a single compilation unit.
//
// Variables are the only nodes that change after allocation, and they only
// change through binding. An Arena is not safe for concurrent use: each
// inference pass must own its own Arena.
type Arena struct {
	id     uuid.UUID
	nodes  []node
	trail  []undo
	open   int
	fresh  uint64
	logger *slog.Logger
}

func NewArena() *Arena {
	id := uuid.New()
	return &Arena{
		id:     id,
		nodes:  make([]node, 0, 64),
		logger: logger.With("arena", id.String()),
	}
}

// ID uniquely identifies this Arena, mostly for logging
func (a *Arena) ID() uuid.UUID { return a.id }

// Len is the number of nodes allocated so far
func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) alloc(n node) Handle {
	slot, err := safecast.Conv[uint32](len(a.nodes))
	if err != nil || Handle(slot) == NoType {
		panic(fmt.Sprintf("arena %s is full: %v", a.id, err))
	}
	a.nodes = append(a.nodes, n)
	return Handle(slot)
}

func (a *Arena) node(h Handle) *node {
	if int(h) >= len(a.nodes) {
		panic(&ForeignHandleError{Handle: h, Arena: a.id, Len: len(a.nodes)})
	}
	return &a.nodes[h]
}

// setBound is the only mutation of an allocated node
func (a *Arena) setBound(v Handle, target Handle) {
	n := a.node(v)
	if n.kind != KindVariable {
		panic(&UnknownVariantError{Kind: n.kind, Op: "bind", Arena: a.id})
	}
	if a.open > 0 {
		a.trail = append(a.trail, undo{at: v, prev: *n})
	}
	n.bound = true
	n.right = target
}

// Mark starts recording bindings so they can be undone with Rollback.
// Every Mark must be followed by exactly one Rollback or Commit.
func (a *Arena) Mark() Mark {
	a.open++
	return Mark{nodes: len(a.nodes), trail: len(a.trail)}
}

// Rollback undoes every binding made since m, and drops every node
// allocated since m. Handles obtained after m are invalid afterwards.
func (a *Arena) Rollback(m Mark) {
	for i := len(a.trail) - 1; i >= m.trail; i-- {
		entry := a.trail[i]
		if int(entry.at) < len(a.nodes) {
			a.nodes[entry.at] = entry.prev
		}
	}
	a.trail = a.trail[:m.trail]
	a.nodes = a.nodes[:m.nodes]
	a.close()
}

// Commit keeps the bindings made since m
func (a *Arena) Commit(m Mark) {
	a.close()
}

func (a *Arena) close() {
	a.open--
	if a.open < 0 {
		panic("arena: Commit or Rollback without Mark")
	}
	if a.open == 0 {
		a.trail = a.trail[:0]
	}
}

// Kind returns the variant of h, without following bindings
func (a *Arena) Kind(h Handle) Kind { return a.node(h).kind }

// Name returns the qualified name of a Simple, Record, Algebraic or
// Recursive type, or the name of a Variable
func (a *Arena) Name(h Handle) string { return a.node(h).name }

// Base returns the base type of a Parameterized
func (a *Arena) Base(h Handle) Handle {
	n := a.node(h)
	if n.kind != KindParameterized {
		return NoType
	}
	return n.left
}

// Arguments returns the parameters of a Parameterized, or the type
// arguments of a Record or Algebraic
func (a *Arena) Arguments(h Handle) []Handle { return a.node(h).args }

// Properties returns the fields of a Record in declaration order
func (a *Arena) Properties(h Handle) []Property { return a.node(h).props }

// Members returns the members of an Algebraic or Union, sorted by name
func (a *Arena) Members(h Handle) []Handle { return a.node(h).members }

// Super returns the name of the Algebraic a Record was declared in, if any
func (a *Arena) Super(h Handle) (string, bool) {
	n := a.node(h)
	return n.super, n.super != ""
}

// Target returns what Variable v is bound to, if it is bound
func (a *Arena) Target(v Handle) (Handle, bool) {
	n := a.node(v)
	if n.kind != KindVariable || !n.bound {
		return NoType, false
	}
	return n.right, true
}

// IsUnbound reports whether h is a Variable that is not bound,
// after following bindings
func (a *Arena) IsUnbound(h Handle) bool {
	return a.node(a.Resolve(h)).kind == KindVariable
}

// UnknownVariantError is raised (as a panic) when a dispatch over type
// variants meets one it does not handle. It signals a bug in the engine,
// and is recovered at the boundary of a compilation unit.
type UnknownVariantError struct {
	Kind  Kind
	Op    string
	Arena uuid.UUID
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("%s: unhandled type variant %v (arena %s)", e.Op, e.Kind, e.Arena)
}

// ForeignHandleError is raised (as a panic) when a Handle does not belong
// to the Arena it is used with
type ForeignHandleError struct {
	Handle Handle
	Arena  uuid.UUID
	Len    int
}

func (e *ForeignHandleError) Error() string {
	return fmt.Sprintf("handle %d is not part of arena %s (%d nodes)", e.Handle, e.Arena, e.Len)
}

func unknownVariant(a *Arena, k Kind, op string) error {
	return &UnknownVariantError{Kind: k, Op: op, Arena: a.id}
}
