// Package resolve finds the type of a declaration by its qualified name,
// loading compiled artifacts or compiling the owning module on demand.
package resolve

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/internal/log"
)

var logger = log.DefaultLogger.With("section", "resolve")

// schemaVersion is bumped whenever the encoding of Unit changes.
// Artifacts with a different version are ignored.
const schemaVersion uint16 = 1

// Kind tells type-level declarations apart from expression-level ones,
// which live in different namespaces
type Kind uint8

const (
	KindExpr Kind = iota
	KindType
)

func (k Kind) String() string {
	switch k {
	case KindExpr:
		return "expr"
	case KindType:
		return "type"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Key identifies a declaration
type Key struct {
	Name reflect.QName
	Kind Kind
}

func TypeKey(name reflect.QName) Key { return Key{Name: name, Kind: KindType} }
func ExprKey(name reflect.QName) Key { return Key{Name: name, Kind: KindExpr} }

func (k Key) String() string {
	return k.Kind.String() + ":" + string(k.Name)
}

type keyHasher struct{}

func (keyHasher) Hash(k Key) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte{byte(k.Kind)})
	_, _ = h.Write([]byte(k.Name))
	return h.Sum32()
}

func (keyHasher) Equal(a, b Key) bool { return a == b }

// Declaration is a resolved public declaration. Its type is arena-free, and
// is materialised into whichever arena needs it.
type Declaration struct {
	Name reflect.QName    `msgpack:"n" yaml:"name"`
	Kind Kind             `msgpack:"k" yaml:"kind"`
	Type reflect.TypeInfo `msgpack:"t" yaml:"type"`
}

func (d Declaration) Key() Key {
	return Key{Name: d.Name, Kind: d.Kind}
}

// Unit is the compiled form of one module: the types of its public declarations
type Unit struct {
	Schema       uint16        `msgpack:"schema" yaml:"-"`
	Module       string        `msgpack:"module" yaml:"module"`
	BuildID      string        `msgpack:"build" yaml:"build"`
	Imports      []string      `msgpack:"imports,omitempty" yaml:"imports,omitempty"`
	Declarations []Declaration `msgpack:"decls" yaml:"declarations"`
}

// Compiler compiles the source of module. The compiler may resolve the
// declarations module imports through r, passing ctx along so that import
// cycles can be detected.
type Compiler interface {
	Compile(ctx context.Context, module string, src []byte, r *Resolver) (*Unit, error)
}

// CompilerFunc adapts a function to Compiler
type CompilerFunc func(ctx context.Context, module string, src []byte, r *Resolver) (*Unit, error)

func (f CompilerFunc) Compile(ctx context.Context, module string, src []byte, r *Resolver) (*Unit, error) {
	return f(ctx, module, src, r)
}
