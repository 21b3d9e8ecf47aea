package parse

import (
	"fmt"
	"go/token"
	"unicode"
	"unicode/utf8"

	"github.com/cottand/iletype/frontend/ast"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/internal/log"
)

var logger = log.DefaultLogger.With("section", "frontend.parse")

// Parse reads src, registering it as filename in fset. Declarations that
// fail to parse are reported and skipped, so the returned file is never nil.
func Parse(fset *token.FileSet, filename string, src []byte) (*ast.File, *ilerr.Errors) {
	file := fset.AddFile(filename, -1, len(src))
	file.SetLinesForContent(src)
	toks, errs := lex(file, src)
	p := &parser{file: file, toks: toks}
	f := p.parseFile()
	errs = errs.Merge(p.errs)
	if errs.HasError() {
		logger.Debug("parsed with errors", "file", filename, "errors", errs)
	}
	return f, errs
}

type parser struct {
	file *token.File
	toks []tok
	at   int
	// end is the index of the first token after the current declaration
	end  int
	errs *ilerr.Errors
}

// syntaxError aborts the current declaration
type syntaxError struct {
	at  tok
	msg string
}

func (p *parser) fail(at tok, format string, args ...any) {
	panic(syntaxError{at: at, msg: fmt.Sprintf(format, args...)})
}

func (p *parser) rangeOf(from, to tok) ast.Range {
	return ast.Range{PosStart: p.file.Pos(from.start), PosEnd: p.file.Pos(to.end)}
}

func (p *parser) peek() tok {
	if p.at >= p.end {
		next := p.toks[p.end]
		if next.kind == tEOF {
			return next
		}
		return tok{kind: tEnd, start: next.start, end: next.start, col: 1}
	}
	return p.toks[p.at]
}

func (p *parser) last() tok {
	return p.toks[max(p.at-1, 0)]
}

func (p *parser) next() tok {
	t := p.peek()
	if p.at < p.end {
		p.at++
	}
	return t
}

func (p *parser) accept(kind kind, text string) bool {
	if p.peek().is(kind, text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind kind, text string) tok {
	t := p.peek()
	if !t.is(kind, text) {
		p.fail(t, "expected '%s', found %s", text, describe(t))
	}
	return p.next()
}

func (p *parser) expectIdent() tok {
	t := p.peek()
	if t.kind != tIdent || isKeyword(t.text) {
		p.fail(t, "expected an identifier, found %s", describe(t))
	}
	return p.next()
}

func describe(t tok) string {
	if t.kind == tEOF || t.kind == tEnd {
		return t.kind.String()
	}
	return fmt.Sprintf("%s '%s'", t.kind, t.text)
}

func isUpper(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func (p *parser) parseFile() *ast.File {
	f := &ast.File{}
	if len(p.toks) > 0 {
		f.Range = p.rangeOf(p.toks[0], p.toks[len(p.toks)-1])
	}
	for p.at < len(p.toks)-1 {
		start := p.at
		p.end = start + 1
		for p.end < len(p.toks)-1 && p.toks[p.end].col > 1 {
			p.end++
		}
		p.parseDeclaration(f)
		if p.at < p.end {
			p.errs = p.errs.With(ilerr.New(ilerr.NewParse{
				Positioner:    p.rangeOf(p.peek(), p.toks[p.end-1]),
				ParserMessage: fmt.Sprintf("unexpected %s", describe(p.peek())),
			}))
		}
		p.at = p.end
	}
	return f
}

func (p *parser) parseDeclaration(f *ast.File) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err, ok := r.(syntaxError)
		if !ok {
			panic(r)
		}
		p.errs = p.errs.With(ilerr.New(ilerr.NewParse{
			Positioner:    p.rangeOf(err.at, err.at),
			ParserMessage: err.msg,
		}))
		p.at = p.end
	}()

	first := p.peek()
	switch {
	case first.is(tIdent, "module"):
		p.next()
		f.Module = p.expectIdent().text
	case first.is(tIdent, "import"):
		p.next()
		name := p.expectIdent()
		f.Imports = append(f.Imports, ast.Import{Range: p.rangeOf(first, name), Module: name.text})
	case first.is(tIdent, "data"):
		f.Data = append(f.Data, p.parseData())
	default:
		name := p.parseDeclName()
		if p.accept(tOp, "::") {
			typ := p.parseType()
			f.Signatures = append(f.Signatures, &ast.Signature{Range: p.rangeOf(first, p.last()), Name: name, Type: typ})
			return
		}
		var params []ast.Param
		for p.peek().kind == tIdent && !isKeyword(p.peek().text) {
			param := p.next()
			params = append(params, ast.Param{Range: p.rangeOf(param, param), Name: param.text})
		}
		p.expect(tOp, "=")
		body := p.parseExpr()
		f.Definitions = append(f.Definitions, &ast.Definition{Range: p.rangeOf(first, p.last()), Name: name, Params: params, Body: body})
	}
}

// parseDeclName reads `name` or `(op)`
func (p *parser) parseDeclName() string {
	if p.accept(tPunct, "(") {
		op := p.next()
		if op.kind != tOp {
			p.fail(op, "expected an operator, found %s", describe(op))
		}
		p.expect(tPunct, ")")
		return op.text
	}
	return p.expectIdent().text
}

func (p *parser) parseData() *ast.DataDecl {
	first := p.expect(tIdent, "data")
	name := p.expectIdent()
	if !isUpper(name.text) {
		p.fail(name, "type names must start with an uppercase letter")
	}
	decl := &ast.DataDecl{Name: name.text}
	for p.peek().kind == tIdent {
		decl.Params = append(decl.Params, p.expectIdent().text)
	}
	p.expect(tOp, "=")
	for {
		decl.Constructors = append(decl.Constructors, p.parseConstructor())
		if !p.accept(tOp, "|") {
			break
		}
	}
	decl.Range = p.rangeOf(first, p.last())
	return decl
}

func (p *parser) parseConstructor() *ast.Constructor {
	name := p.expectIdent()
	if !isUpper(name.text) {
		p.fail(name, "constructor names must start with an uppercase letter")
	}
	ctor := &ast.Constructor{Name: name.text}
	if p.accept(tPunct, "{") {
		for !p.accept(tPunct, "}") {
			field := p.expectIdent()
			p.expect(tOp, ":")
			typ := p.parseType()
			ctor.Fields = append(ctor.Fields, ast.Field{Range: p.rangeOf(field, p.last()), Name: field.text, Type: typ})
			if !p.accept(tPunct, ",") {
				p.expect(tPunct, "}")
				break
			}
		}
	} else {
		for p.startsAtomicType() {
			start := p.peek()
			typ := p.parseAtomicType()
			ctor.Fields = append(ctor.Fields, ast.Field{Range: p.rangeOf(start, p.last()), Type: typ})
		}
	}
	ctor.Range = p.rangeOf(name, p.last())
	return ctor
}
