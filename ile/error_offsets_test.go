package ile

import (
	"strings"
	"testing"

	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testError(t *testing.T, prog string, shouldContain ...string) {
	color.NoColor = true
	pkg, errs, err := NewPackageFromBytes([]byte(prog))
	require.NoError(t, err)
	require.True(t, errs.HasError(), "expected errors")
	sb := strings.Builder{}
	for _, err := range errs.Errors() {
		sb.WriteString(ilerr.FormatWithCodeAndSource(err, pkg))
		sb.WriteString("\n-----------\n")
	}
	errMsg := sb.String()
	for _, s := range shouldContain {
		assert.Contains(t, errMsg, s)
	}
	t.Log("error message:\n" + errMsg)
}

func TestErrorOffsetEOF(t *testing.T) {
	prog := `module test


// asd
a = 1 + 2 +`
	testError(t, prog, "test.ile:5:12:", "end of file")
}

func TestErrorOffsetStartOfLine(t *testing.T) {
	prog := `module test

a = 1


b = (2
  + 1
c = 3`
	testError(t, prog, "test.ile:8:1:", "end of declaration", "   8 | c = 3\n       ^")
}

func TestErrorOffsetOfTypeError(t *testing.T) {
	prog := `module test

(+) :: Int -> Int -> Int
// a long comment
other :: Int -> Int
other a = a + 2

aa :: String -> Int
aa x = other x`

	testError(t, prog, "test.ile:9:14: (E001)", "   9 | aa x = other x\n")
}

func TestErrorOffsetUnresolved(t *testing.T) {
	prog := "module test\n\nfn = \\x -> missing x"
	testError(t, prog, "test.ile:3:12: (E003)", "^~~~~~~")
}

func TestErrorOffsetLongFile(t *testing.T) {
	prog := "module test\n" + strings.Repeat("\n", 18) + `a = 1 + 2 +
// aa
b = 2
// other comment
`
	testError(t, prog, "test.ile:22:1")
}

func TestDisplayTypes(t *testing.T) {
	pkg, errs, err := NewPackageFromBytes([]byte(`module test
data Pair a = Pair a a
swap :: Pair a -> Pair a
n = 1
`))
	require.NoError(t, err)
	require.False(t, errs.HasError(), "%v", errs)
	assert.Equal(t, "test", pkg.Name())
	assert.Equal(t, ""+
		"data test.Pair<a>(a, a)\n"+
		"swap :: test.Pair<a>(a, a) -> test.Pair<a>(a, a)\n"+
		"n :: Int\n"+
		"Pair :: a -> a -> test.Pair<a>(a, a)\n", pkg.DisplayTypes())
}
