package types_test

import (
	"testing"

	"github.com/cottand/iletype/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericCopyIsIndependent(t *testing.T) {
	a := types.NewArena()
	v := a.Variable("a")
	identity := a.Function(v, v)

	first := a.GenericCopy(identity, nil)
	second := a.GenericCopy(identity, nil)

	assert.Equal(t, a.ArgumentOf(first), a.ResultOf(first), "occurrences of one variable share their copy")
	assert.False(t, a.Equal(a.ArgumentOf(first), a.ArgumentOf(second)))
	assert.False(t, a.Equal(a.ArgumentOf(first), v))

	require.True(t, a.Accepts(a.ArgumentOf(first), a.IntType()))
	assert.Equal(t, "Int -> Int", a.Show(first))
	assert.True(t, a.IsUnbound(a.ArgumentOf(second)))
	assert.True(t, a.IsUnbound(v))
	assert.Equal(t, "a -> a", a.Show(identity))
}

func TestGenericCopyFillsTable(t *testing.T) {
	a := types.NewArena()
	x, y := a.Variable("x"), a.Variable("y")
	pair := a.TupleOf(x, a.Function(y, x))

	table := types.Instantiation{}
	cp := a.GenericCopy(pair, table)

	require.Len(t, table, 2)
	assert.Contains(t, table, x)
	assert.Contains(t, table, y)
	props := a.Properties(cp)
	assert.Equal(t, table[x], props[0].Type)
	assert.Equal(t, table[y], a.ArgumentOf(props[1].Type))

	t.Run("fresh names keep their hint", func(t *testing.T) {
		assert.Regexp(t, `^x'\d+$`, a.Name(table[x]))
		again := a.GenericCopy(table[x], nil)
		assert.Regexp(t, `^x'\d+$`, a.Name(again))
	})
}

func TestGenericCopySharesClosedTypes(t *testing.T) {
	a := types.NewArena()
	closed := a.Functions(a.IntType(), a.StringType(), a.BoolType())
	assert.Equal(t, closed, a.GenericCopy(closed, nil))

	bound := a.BoundVariable(closed)
	assert.Equal(t, closed, a.GenericCopy(bound, nil), "bound variables are copied through their target")
}

func TestSubstituteOnlyReplacesTableKeys(t *testing.T) {
	a := types.NewArena()
	x, y := a.Variable("x"), a.Variable("y")
	f := a.Function(x, y)

	replaced := a.Substitute(f, types.Instantiation{x: a.IntType()})
	assert.Equal(t, "Int -> y", a.Show(replaced))
	assert.Equal(t, y, a.ResultOf(replaced))
	assert.Equal(t, f, a.Substitute(f, nil))
}

func TestExposeReplacesBoundVariables(t *testing.T) {
	a := types.NewArena()
	v := a.Variable("v")
	w := a.Variable("w")
	f := a.Function(v, a.Parameterized(a.Simple("List"), w))
	require.True(t, a.Accepts(v, a.IntType()))

	exposed := a.Expose(f)
	assert.Equal(t, types.KindSimple, a.Kind(a.ArgumentOf(exposed)))
	assert.Equal(t, w, a.Arguments(a.ResultOf(exposed))[0], "unbound variables are kept")
	assert.True(t, a.Equal(f, exposed))

	unchanged := a.Function(a.IntType(), w)
	assert.Equal(t, unchanged, a.Expose(unchanged))
}

func TestFreeVariables(t *testing.T) {
	a := types.NewArena()
	x, y := a.Variable("x"), a.Variable("y")
	h := a.Function(x, a.TupleOf(y, x, a.BoundVariable(y)))
	assert.Equal(t, []types.Handle{x, y}, a.FreeVariables(h))

	require.True(t, a.Accepts(x, a.IntType()))
	assert.Equal(t, []types.Handle{y}, a.FreeVariables(h))
}
