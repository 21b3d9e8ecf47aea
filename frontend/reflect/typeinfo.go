// Package reflect turns arena types into self-contained TypeInfo values, which
// can be stored in compiled artifacts, printed, or materialised back into
// another arena.
package reflect

import (
	"fmt"
	"strings"

	"github.com/cottand/iletype/frontend/types"
	"github.com/cottand/iletype/internal/log"
	"github.com/cottand/iletype/util"
)

var logger = log.DefaultLogger.With("section", "types.reflect")

// QName is an opaque reference to a declaration by its qualified name,
// like `std.Tree`. A QName carries no type: consumers look it up.
type QName string

func NewQName(module, name string) QName {
	if module == "" {
		return QName(name)
	}
	return QName(module + "." + name)
}

// Module returns the part of q before the last dot, if any
func (q QName) Module() string {
	if i := strings.LastIndexByte(string(q), '.'); i > 0 {
		return string(q[:i])
	}
	return ""
}

// Local returns the part of q after the last dot
func (q QName) Local() string {
	if i := strings.LastIndexByte(string(q), '.'); i > 0 {
		return string(q[i+1:])
	}
	return string(q)
}

func (q QName) String() string { return string(q) }

// TypeInfo mirrors the shape of an arena type without referring to any arena.
// Only the fields relevant to Kind are set.
type TypeInfo struct {
	Kind string `msgpack:"k" yaml:"kind"`
	Name QName  `msgpack:"n,omitempty" yaml:"name,omitempty"`

	Argument *TypeInfo `msgpack:"a,omitempty" yaml:"argument,omitempty"`
	Result   *TypeInfo `msgpack:"r,omitempty" yaml:"result,omitempty"`
	Base     *TypeInfo `msgpack:"b,omitempty" yaml:"base,omitempty"`

	// Args are the parameters of a parameterized type,
	// or the type arguments of a record or algebraic type
	Args       []TypeInfo     `msgpack:"g,omitempty" yaml:"args,omitempty"`
	Properties []PropertyInfo `msgpack:"p,omitempty" yaml:"properties,omitempty"`
	Members    []TypeInfo     `msgpack:"m,omitempty" yaml:"members,omitempty"`

	// Super names the algebraic type a record was declared in
	Super util.Option[QName] `msgpack:"s" yaml:"super,omitempty"`
}

type PropertyInfo struct {
	Name string   `msgpack:"n" yaml:"name"`
	Type TypeInfo `msgpack:"t" yaml:"type"`
}

// Transform builds the TypeInfo of h. Bindings are exposed first, so only
// unbound variables appear as variables in the result.
func Transform(arena *types.Arena, h types.Handle) TypeInfo {
	return transform(arena, arena.Expose(h))
}

func transform(arena *types.Arena, h types.Handle) TypeInfo {
	h = arena.Resolve(h)
	kind := arena.Kind(h)
	info := TypeInfo{Kind: kind.String()}
	switch kind {
	case types.KindSimple, types.KindRecursive, types.KindVariable:
		info.Name = QName(arena.Name(h))
	case types.KindFunction:
		arg, res := transform(arena, arena.ArgumentOf(h)), transform(arena, arena.ResultOf(h))
		info.Argument, info.Result = &arg, &res
	case types.KindParameterized:
		base := transform(arena, arena.Base(h))
		info.Base = &base
		info.Args = transformAll(arena, arena.Arguments(h))
	case types.KindRecord:
		info.Name = QName(arena.Name(h))
		info.Args = transformAll(arena, arena.Arguments(h))
		for _, p := range arena.Properties(h) {
			info.Properties = append(info.Properties, PropertyInfo{Name: p.Name, Type: transform(arena, p.Type)})
		}
		super, ok := arena.Super(h)
		info.Super = util.OptionOf(QName(super), ok)
	case types.KindAlgebraic:
		info.Name = QName(arena.Name(h))
		info.Args = transformAll(arena, arena.Arguments(h))
		info.Members = transformAll(arena, arena.Members(h))
	case types.KindUnion:
		info.Members = transformAll(arena, arena.Members(h))
	default:
		panic(&types.UnknownVariantError{Kind: kind, Op: "reflect", Arena: arena.ID()})
	}
	return info
}

func transformAll(arena *types.Arena, hs []types.Handle) []TypeInfo {
	if len(hs) == 0 {
		return nil
	}
	ret := make([]TypeInfo, len(hs))
	for i, h := range hs {
		ret[i] = transform(arena, h)
	}
	return ret
}

// Materialize rebuilds info inside arena. Variables with the same name inside
// info become one newly allocated variable, so that materialising the same
// info twice yields independent types.
func Materialize(arena *types.Arena, info TypeInfo) (types.Handle, error) {
	m := materializer{arena: arena, vars: make(map[QName]types.Handle)}
	return m.materialize(info)
}

type materializer struct {
	arena *types.Arena
	vars  map[QName]types.Handle
}

func (m *materializer) materialize(info TypeInfo) (types.Handle, error) {
	a := m.arena
	switch info.Kind {
	case types.KindSimple.String():
		return a.Simple(string(info.Name)), nil
	case types.KindRecursive.String():
		return a.Recursive(string(info.Name)), nil
	case types.KindVariable.String():
		if v, ok := m.vars[info.Name]; ok {
			return v, nil
		}
		v := a.Variable(string(info.Name))
		m.vars[info.Name] = v
		return v, nil
	case types.KindFunction.String():
		if info.Argument == nil || info.Result == nil {
			return types.NoType, fmt.Errorf("function type info is missing its argument or result")
		}
		arg, err := m.materialize(*info.Argument)
		if err != nil {
			return types.NoType, err
		}
		res, err := m.materialize(*info.Result)
		if err != nil {
			return types.NoType, err
		}
		return a.Function(arg, res), nil
	case types.KindParameterized.String():
		if info.Base == nil {
			return types.NoType, fmt.Errorf("parameterized type info is missing its base")
		}
		base, err := m.materialize(*info.Base)
		if err != nil {
			return types.NoType, err
		}
		params, err := m.materializeAll(info.Args)
		if err != nil {
			return types.NoType, err
		}
		return a.Parameterized(base, params...), nil
	case types.KindRecord.String():
		args, err := m.materializeAll(info.Args)
		if err != nil {
			return types.NoType, err
		}
		props := make([]types.Property, len(info.Properties))
		for i, p := range info.Properties {
			t, err := m.materialize(p.Type)
			if err != nil {
				return types.NoType, fmt.Errorf("property %s of %s: %w", p.Name, info.Name, err)
			}
			props[i] = types.Property{Name: p.Name, Type: t}
		}
		super, _ := info.Super.Get()
		return a.Member(string(super), string(info.Name), args, props...), nil
	case types.KindAlgebraic.String():
		args, err := m.materializeAll(info.Args)
		if err != nil {
			return types.NoType, err
		}
		members, err := m.materializeAll(info.Members)
		if err != nil {
			return types.NoType, fmt.Errorf("members of %s: %w", info.Name, err)
		}
		return a.Algebraic(string(info.Name), args, members...), nil
	case types.KindUnion.String():
		members, err := m.materializeAll(info.Members)
		if err != nil {
			return types.NoType, err
		}
		return a.Union(members...), nil
	default:
		logger.Warn("cannot materialize type info", "kind", info.Kind, "name", info.Name)
		return types.NoType, fmt.Errorf("unknown type info kind %q", info.Kind)
	}
}

func (m *materializer) materializeAll(infos []TypeInfo) ([]types.Handle, error) {
	ret := make([]types.Handle, len(infos))
	for i, info := range infos {
		h, err := m.materialize(info)
		if err != nil {
			return nil, err
		}
		ret[i] = h
	}
	return ret, nil
}
