package frontend_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/cottand/iletype/frontend"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stdSource = `module std

(+) :: Int -> Int -> Int
(+) :: Int -> String -> String

length :: String -> Int
`

func resolverWith(sources map[string]string) *resolve.Resolver {
	fs := fstest.MapFS{}
	for module, src := range sources {
		fs[resolve.ModulePath(module)+resolve.SourceExt] = &fstest.MapFile{Data: []byte(src)}
	}
	return resolve.New(resolve.SourceDir{FS: fs, Compiler: frontend.Compiler{}})
}

func check(t *testing.T, src string, sources map[string]string) *frontend.Result {
	t.Helper()
	res, err := frontend.Compiler{}.Check(context.Background(), "app", []byte(src), resolverWith(sources))
	require.NoError(t, err)
	return res
}

func checkOK(t *testing.T, src string, sources map[string]string) *frontend.Result {
	t.Helper()
	res := check(t, src, sources)
	require.False(t, res.Errors.HasError(), "unexpected errors:\n%v", res.Errors)
	return res
}

func codes(errs *ilerr.Errors) []ilerr.ErrCode {
	var ret []ilerr.ErrCode
	for _, err := range errs.Errors() {
		ret = append(ret, err.Code())
	}
	return ret
}

func TestAddition(t *testing.T) {
	std := map[string]string{"std": "(+) :: Int -> Int -> Int"}
	res := checkOK(t, "import std\nexample = 2 + 2", std)
	assert.Equal(t, "Int", res.TypeOf("example"))
	assert.Equal(t, []string{"std"}, res.Imports)
}

func TestOverloadSelection(t *testing.T) {
	std := map[string]string{"std": stdSource}
	cases := map[string]string{
		`2 + "x"`:          "String",
		`2 + 2`:            "Int",
		`2 + (2 + 2)`:      "Int",
		`std.length "abc"`: "Int",
		`(+) 1`:            "(Int -> Int) | (String -> String)",
	}
	for expr, expected := range cases {
		t.Run(expr, func(t *testing.T) {
			res := checkOK(t, "import std\nexample = "+expr, std)
			assert.Equal(t, expected, res.TypeOf("example"))
		})
	}
}

func TestLocalOverloads(t *testing.T) {
	res := checkOK(t, `
(+) :: Int -> Int -> Int
(+) :: Int -> String -> String

example = 2 + "x"
`, nil)
	assert.Equal(t, "String", res.TypeOf("example"))
	assert.Equal(t, "(Int -> Int -> Int) | (Int -> String -> String)", res.TypeOf("+"))
}

func TestUnresolvedReference(t *testing.T) {
	std := map[string]string{"std": stdSource}
	res, err := frontend.Compiler{}.Check(context.Background(), "app", []byte("import std\nexample = nope + 1"), resolverWith(std))
	require.Error(t, err)

	var unresolved ilerr.NewUnresolvedReference
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "nope", unresolved.Name)
	assert.Equal(t, "app", unresolved.Module)
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, []ilerr.ErrCode{ilerr.UnresolvedReference}, codes(res.Errors))

	pos := res.FileSet.Position(unresolved.Pos())
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 11, pos.Column)
}

func TestMissingImport(t *testing.T) {
	_, err := frontend.Compiler{}.Check(context.Background(), "app", []byte("import nowhere\nx = 1"), resolverWith(nil))
	var unresolved ilerr.NewUnresolvedReference
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "nowhere", unresolved.Name)
}

func TestImportCycle(t *testing.T) {
	r := resolverWith(map[string]string{
		"a": "import b\nx = 1",
		"b": "import a\ny = 1",
	})
	_, err := frontend.Compiler{}.Check(context.Background(), "a", []byte("import b\nx = 1"), r)
	var cycle *resolve.CycleError
	require.ErrorAs(t, err, &cycle)
}

func TestCompiledThroughResolver(t *testing.T) {
	r := resolverWith(map[string]string{
		"std":      stdSource,
		"app.main": "module app.main\nimport std\nexample = 2 + \"x\"",
	})
	decl, err := r.Resolve(context.Background(), resolve.ExprKey("app.main.example"))
	require.NoError(t, err)
	assert.Equal(t, "simple", decl.Type.Kind)
	assert.EqualValues(t, "String", decl.Type.Name)

	plus, err := r.Resolve(context.Background(), resolve.ExprKey("std.+"))
	require.NoError(t, err)
	assert.Equal(t, "union", plus.Type.Kind)
	assert.Len(t, plus.Type.Members, 2)

	units := r.Loaded()
	require.Len(t, units, 2)
	assert.Equal(t, []string{"std"}, units[0].Imports)
	assert.NotEmpty(t, units[0].BuildID)
}

func TestDiagnosticsFailCompilation(t *testing.T) {
	r := resolverWith(map[string]string{
		"std": stdSource,
		"app": "import std\nexample = 1 + ()",
	})
	_, err := r.Resolve(context.Background(), resolve.ExprKey("app.example"))
	require.Error(t, err)
	assert.False(t, resolve.IsNotFound(err))

	var errs *ilerr.Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, []ilerr.ErrCode{ilerr.TypeMismatch}, codes(errs))
}

func TestTypeMismatch(t *testing.T) {
	std := map[string]string{"std": "(+) :: Int -> Int -> Int"}
	res := check(t, "import std\nexample = 1 + \"a\"\nafter = 1 + 1", std)
	require.Equal(t, []ilerr.ErrCode{ilerr.TypeMismatch}, codes(res.Errors))
	msg := res.Errors.Errors()[0].Error()
	assert.Contains(t, msg, "Int")
	assert.Contains(t, msg, "String")
	assert.Contains(t, msg, "((+) 1)")

	assert.Equal(t, types.ErrorName, res.TypeOf("example"), "the mismatch does not cascade")
	assert.Equal(t, "Int", res.TypeOf("after"))
}

func TestNotAFunction(t *testing.T) {
	res := check(t, "example = 1 2", nil)
	assert.Equal(t, []ilerr.ErrCode{ilerr.NotAFunction}, codes(res.Errors))
}

func TestSignatures(t *testing.T) {
	t.Run("generic uses are independent", func(t *testing.T) {
		res := checkOK(t, `
id :: a -> a
id x = x

n = id 1
s = id "s"
`, nil)
		assert.Equal(t, "Int", res.TypeOf("n"))
		assert.Equal(t, "String", res.TypeOf("s"))
		assert.Equal(t, "a -> a", res.TypeOf("id"))
	})

	t.Run("mismatch", func(t *testing.T) {
		res := check(t, "f :: Int -> String\nf x = x", nil)
		require.Equal(t, []ilerr.ErrCode{ilerr.SignatureMismatch}, codes(res.Errors))
		assert.Contains(t, res.Errors.Error(), "'f' is declared as 'Int -> String'")
	})

	t.Run("signature variables are not narrowed by the definition", func(t *testing.T) {
		res := check(t, "f :: a -> a\nf x = 1\nn = f \"s\"", nil)
		require.Equal(t, []ilerr.ErrCode{ilerr.SignatureMismatch}, codes(res.Errors))
		assert.Contains(t, res.Errors.Error(), "'f' is declared as 'a -> a', but its definition has type 'Int -> Int'")
		assert.Equal(t, "a -> a", res.TypeOf("f"))
	})

	t.Run("signature variables stay distinct", func(t *testing.T) {
		res := check(t, "first :: a -> b -> a\nfirst x y = y", nil)
		require.Equal(t, []ilerr.ErrCode{ilerr.SignatureMismatch}, codes(res.Errors))

		res = checkOK(t, "first :: a -> b -> a\nfirst x y = x", nil)
		assert.Equal(t, "a -> b -> a", res.TypeOf("first"))
	})

	t.Run("extern", func(t *testing.T) {
		res := checkOK(t, "print :: String -> ()\nmain = print \"hi\"", nil)
		assert.Equal(t, "Unit", res.TypeOf("main"))
	})

	t.Run("unknown type", func(t *testing.T) {
		res := check(t, "f :: Nope -> Int", nil)
		assert.Equal(t, []ilerr.ErrCode{ilerr.UndefinedType}, codes(res.Errors))
	})
}

func TestUnboundEscape(t *testing.T) {
	res := check(t, "identity = \\x -> x", nil)
	require.Equal(t, []ilerr.ErrCode{ilerr.UnboundEscape}, codes(res.Errors))
	assert.Contains(t, res.Errors.Error(), "identity")
}

func TestDefinitionsInAnyOrder(t *testing.T) {
	res := checkOK(t, "a = b\nb = (1, \"x\")\nd = (1, a)", nil)
	assert.Equal(t, "(Int, String)", res.TypeOf("a"))
	assert.Equal(t, "(Int, (Int, String))", res.TypeOf("d"))
}

func TestIfAccumulatesBranches(t *testing.T) {
	res := checkOK(t, "pick b = if b then 1 else \"s\"\nsame = if True then 1 else 2", nil)
	assert.Equal(t, "Bool -> (Int | String)", res.TypeOf("pick"))
	assert.Equal(t, "Int", res.TypeOf("same"))

	res = check(t, "bad = if 1 then 1 else 2", nil)
	assert.Equal(t, []ilerr.ErrCode{ilerr.TypeMismatch}, codes(res.Errors))
}

func TestDataDeclarations(t *testing.T) {
	src := `module app
data Tree a = Leaf | Node a (Tree a) (Tree a)
data Person = Person { name : String, age : Int }

t = Node 1 Leaf Leaf
deep = Node 1 (Node 2 Leaf Leaf) Leaf
p = Person "ada" 36
`
	res := checkOK(t, src, nil)
	assert.Equal(t, "app.Node<Int>(Int, app.Tree, app.Tree)", res.TypeOf("t"))
	assert.Equal(t, "app.Node<Int>(Int, app.Tree, app.Tree)", res.TypeOf("deep"))
	assert.Equal(t, "app.Person{name: String, age: Int}", res.TypeOf("p"))
	assert.Equal(t, "String -> Int -> app.Person{name: String, age: Int}", res.TypeOf("Person"))

	tree, ok := res.Lookup(resolve.KindType, "Tree")
	require.True(t, ok)
	assert.Equal(t, types.KindAlgebraic, res.Arena.Kind(tree))
	assert.Equal(t, "app.Tree<a> = app.Leaf<a> | app.Node<a>(a, app.Tree, app.Tree)", res.Arena.ShowDefinition(tree))

	res = check(t, src+"bad = Node 1 \"x\" Leaf\n", nil)
	assert.Equal(t, []ilerr.ErrCode{ilerr.TypeMismatch}, codes(res.Errors))
}

func TestImportedDataTypes(t *testing.T) {
	res := checkOK(t, `
import std.maybe

wrap :: a -> Maybe a
wrap x = Just x

n = wrap 1
`, map[string]string{"std.maybe": "data Maybe a = Nothing | Just a"})
	assert.Equal(t, "std.maybe.Maybe<Int>", res.TypeOf("n"))
}

func TestDuplicateDeclarations(t *testing.T) {
	res := check(t, "x = 1\nx = 2\ndata T = A | B\nA = 3", nil)
	assert.Equal(t, []ilerr.ErrCode{ilerr.DuplicateDeclaration, ilerr.DuplicateDeclaration}, codes(res.Errors))
}

func TestPrelude(t *testing.T) {
	compiler := frontend.Compiler{Prelude: []string{"std"}}
	r := resolve.New(resolve.SourceDir{
		FS:       fstest.MapFS{"std.ile": {Data: []byte(stdSource)}},
		Compiler: compiler,
	})
	res, err := compiler.Check(context.Background(), "app", []byte("example = 2 + 2"), r)
	require.NoError(t, err)
	assert.False(t, res.Errors.HasError())
	assert.Equal(t, "Int", res.TypeOf("example"))
}

func TestParseErrorsAreReported(t *testing.T) {
	res := check(t, "x = (1 +\ny = 2", nil)
	assert.Equal(t, []ilerr.ErrCode{ilerr.Parse}, codes(res.Errors))
	assert.Equal(t, "Int", res.TypeOf("y"))
}
