package reflect_test

import (
	"testing"

	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/types"
	"github.com/cottand/iletype/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func tree(a *types.Arena) types.Handle {
	param := a.Variable("a")
	return a.Algebraic("std.Tree", []types.Handle{param},
		a.Member("std.Tree", "std.Leaf", []types.Handle{param}),
		a.Member("std.Tree", "std.Node", []types.Handle{param},
			types.Property{Name: "_1", Type: param},
			types.Property{Name: "_2", Type: a.Recursive("std.Tree")},
			types.Property{Name: "_3", Type: a.Recursive("std.Tree")},
		),
	)
}

func TestQName(t *testing.T) {
	q := reflect.NewQName("std.collections", "Tree")
	assert.Equal(t, "std.collections", q.Module())
	assert.Equal(t, "Tree", q.Local())
	assert.Equal(t, "std.collections.Tree", q.String())

	local := reflect.NewQName("", "Int")
	assert.Equal(t, "", local.Module())
	assert.Equal(t, "Int", local.Local())
}

func TestTransformAlgebraic(t *testing.T) {
	a := types.NewArena()
	info := reflect.Transform(a, a.Apply(tree(a), a.IntType()))

	assert.Equal(t, "algebraic", info.Kind)
	assert.Equal(t, reflect.QName("std.Tree"), info.Name)
	require.Len(t, info.Args, 1)
	assert.Equal(t, reflect.TypeInfo{Kind: "simple", Name: "Int"}, info.Args[0])

	require.Len(t, info.Members, 2)
	leaf, node := info.Members[0], info.Members[1]
	assert.Equal(t, reflect.QName("std.Leaf"), leaf.Name)
	assert.Equal(t, util.Some(reflect.QName("std.Tree")), node.Super)
	require.Len(t, node.Properties, 3)
	assert.Equal(t, "recursive", node.Properties[1].Type.Kind)
}

func TestTransformExposesBindings(t *testing.T) {
	a := types.NewArena()
	v, w := a.Variable("v"), a.Variable("w")
	require.True(t, a.Accepts(v, a.StringType()))

	info := reflect.Transform(a, a.Function(v, w))
	assert.Equal(t, "function", info.Kind)
	assert.Equal(t, reflect.TypeInfo{Kind: "simple", Name: "String"}, *info.Argument)
	assert.Equal(t, reflect.TypeInfo{Kind: "variable", Name: "w"}, *info.Result)

	record := reflect.Transform(a, a.TupleOf(a.IntType()))
	assert.False(t, record.Super.Present)
}

func TestMaterializeRoundTrip(t *testing.T) {
	from := types.NewArena()
	list := from.Simple("List")
	v := from.Variable("a")
	cases := map[string]types.Handle{
		"algebraic":     tree(from),
		"function":      from.Functions(v, from.Parameterized(list, v), from.UnitType()),
		"union":         from.Union(from.IntType(), from.StringType()),
		"record":        from.Record("Point", nil, types.Property{Name: "x", Type: from.IntType()}),
		"parameterized": from.Parameterized(list, from.TupleOf(from.IntType(), from.BoolType())),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			to := types.NewArena()
			info := reflect.Transform(from, h)
			materialized, err := reflect.Materialize(to, info)
			require.NoError(t, err)
			assert.Equal(t, from.Key(h), to.Key(materialized))
			assert.Equal(t, info, reflect.Transform(to, materialized))
		})
	}
}

func TestMaterializeSharesVariablesByName(t *testing.T) {
	from := types.NewArena()
	v := from.Variable("a")
	info := reflect.Transform(from, from.Function(v, v))

	to := types.NewArena()
	first, err := reflect.Materialize(to, info)
	require.NoError(t, err)
	second, err := reflect.Materialize(to, info)
	require.NoError(t, err)

	assert.Equal(t, to.ArgumentOf(first), to.ResultOf(first))
	assert.NotEqual(t, to.ArgumentOf(first), to.ArgumentOf(second))

	require.True(t, to.Accepts(to.ArgumentOf(first), to.IntType()))
	assert.Equal(t, "Int -> Int", to.Show(first))
	assert.Equal(t, "a -> a", to.Show(second))
}

func TestMaterializeRejectsMalformedInfo(t *testing.T) {
	a := types.NewArena()
	_, err := reflect.Materialize(a, reflect.TypeInfo{Kind: "bogus"})
	assert.ErrorContains(t, err, "bogus")

	_, err = reflect.Materialize(a, reflect.TypeInfo{Kind: "function"})
	assert.Error(t, err)

	_, err = reflect.Materialize(a, reflect.TypeInfo{Kind: "algebraic", Name: "T", Members: []reflect.TypeInfo{{Kind: ""}}})
	assert.ErrorContains(t, err, "members of T")
}

func TestTypeInfoEncodings(t *testing.T) {
	a := types.NewArena()
	info := reflect.Transform(a, tree(a))

	t.Run("msgpack", func(t *testing.T) {
		bs, err := msgpack.Marshal(info)
		require.NoError(t, err)
		var decoded reflect.TypeInfo
		require.NoError(t, msgpack.Unmarshal(bs, &decoded))
		assert.Equal(t, info, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		bs, err := yaml.Marshal(info)
		require.NoError(t, err)
		assert.Contains(t, string(bs), "kind: algebraic")
		assert.Contains(t, string(bs), "name: std.Node")
	})
}

func TestIntrospectorUnrollsLazily(t *testing.T) {
	a := types.NewArena()
	i := reflect.Introspect(a, a.Apply(tree(a), a.IntType()))

	assert.Equal(t, []reflect.QName{"std.Leaf", "std.Node"}, i.Members())

	node, ok := i.Member("std.Node")
	require.True(t, ok)
	child := node.Properties[1].Type
	assert.Equal(t, "algebraic", child.Kind)
	assert.Equal(t, reflect.QName("std.Tree"), child.Name)
	assert.Equal(t, "recursive", child.Members[1].Properties[1].Type.Kind, "only one level is unrolled")

	_, ok = i.Member("std.Branch")
	assert.False(t, ok)

	assert.Equal(t, "recursive", i.Info().Members[1].Properties[2].Type.Kind)
}
