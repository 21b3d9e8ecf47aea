// Package parse reads the source of a module into an ast.File.
//
// Layout is significant only at the top level: every declaration starts at
// the first column, and anything indented continues the declaration above.
package parse

import (
	"go/token"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/cottand/iletype/frontend/ast"
	"github.com/cottand/iletype/frontend/ilerr"
)

type kind uint8

const (
	tEOF kind = iota
	tIdent
	tInt
	tFloat
	tString
	tOp
	tPunct
	// tEnd is where a declaration stops, before the next one starts
	tEnd
)

func (k kind) String() string {
	switch k {
	case tEOF:
		return "end of file"
	case tIdent:
		return "identifier"
	case tInt:
		return "integer"
	case tFloat:
		return "float"
	case tString:
		return "string"
	case tOp:
		return "operator"
	case tEnd:
		return "end of declaration"
	default:
		return "punctuation"
	}
}

type tok struct {
	kind       kind
	text       string
	start, end int
	col        int
}

func (t tok) is(kind kind, text string) bool {
	return t.kind == kind && t.text == text
}

var keywords = []string{"module", "import", "data", "if", "then", "else"}

func isKeyword(text string) bool {
	for _, kw := range keywords {
		if kw == text {
			return true
		}
	}
	return false
}

// opChars are the characters operator tokens are made of. On top of the ones
// user operators may use, they include the colon of `::` and field types.
const opChars = ast.OperatorChars + ":"

func isIdentRune(ch rune, i int) bool {
	return ch == '_' || unicode.IsLetter(ch) ||
		i > 0 && (unicode.IsDigit(ch) || ch == '.' || ch == '\'')
}

func lex(file *token.File, src []byte) ([]tok, *ilerr.Errors) {
	var errs *ilerr.Errors
	s := &scanner.Scanner{}
	s.Init(strings.NewReader(string(src)))
	s.Filename = file.Name()
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	s.IsIdentRune = isIdentRune
	s.Error = func(s *scanner.Scanner, msg string) {
		offset := s.Pos().Offset
		at := file.Pos(min(offset, file.Size()))
		errs = errs.With(ilerr.New(ilerr.NewParse{
			Positioner:    ast.Range{PosStart: at, PosEnd: at},
			ParserMessage: msg,
		}))
	}

	var toks []tok
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		t := tok{start: s.Position.Offset, col: s.Position.Column, text: s.TokenText()}
		switch r {
		case scanner.Ident:
			t.kind = tIdent
		case scanner.Int:
			t.kind = tInt
		case scanner.Float:
			t.kind = tFloat
		case scanner.String:
			t.kind = tString
			unquoted, err := strconv.Unquote(t.text)
			if err != nil {
				s.Error(s, "malformed string literal "+t.text)
			}
			t.text = unquoted
		default:
			if strings.ContainsRune(opChars, r) {
				sb := strings.Builder{}
				sb.WriteRune(r)
				for strings.ContainsRune(opChars, s.Peek()) {
					sb.WriteRune(s.Next())
				}
				t.kind, t.text = tOp, sb.String()
			} else {
				t.kind, t.text = tPunct, string(r)
			}
		}
		t.end = s.Pos().Offset
		toks = append(toks, t)
	}
	toks = append(toks, tok{kind: tEOF, start: len(src), end: len(src), col: 1})
	return toks, errs
}
