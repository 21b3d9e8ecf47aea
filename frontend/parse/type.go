package parse

import (
	"github.com/cottand/iletype/frontend/ast"
)

func (p *parser) parseType() ast.Type {
	first := p.peek()
	arg := p.parseAppliedType()
	if !p.accept(tOp, "->") {
		return arg
	}
	result := p.parseType()
	return &ast.FuncType{Range: p.rangeOf(first, p.last()), Arg: arg, Result: result}
}

func (p *parser) parseAppliedType() ast.Type {
	first := p.peek()
	if first.kind == tIdent && isUpper(first.text) {
		p.next()
		named := &ast.TypeName{Name: first.text}
		for p.startsAtomicType() {
			named.Args = append(named.Args, p.parseAtomicType())
		}
		named.Range = p.rangeOf(first, p.last())
		return named
	}
	return p.parseAtomicType()
}

func (p *parser) startsAtomicType() bool {
	t := p.peek()
	return t.kind == tIdent && !isKeyword(t.text) || t.is(tPunct, "(")
}

func (p *parser) parseAtomicType() ast.Type {
	t := p.next()
	r := p.rangeOf(t, t)
	if t.kind == tIdent && !isKeyword(t.text) {
		if isUpper(t.text) {
			return &ast.TypeName{Range: r, Name: t.text}
		}
		return &ast.TypeVar{Range: r, Name: t.text}
	}
	if !t.is(tPunct, "(") {
		p.fail(t, "expected a type, found %s", describe(t))
	}
	if closing := p.peek(); closing.is(tPunct, ")") {
		p.next()
		return &ast.UnitType{Range: p.rangeOf(t, closing)}
	}
	elems := []ast.Type{p.parseType()}
	for p.accept(tPunct, ",") {
		elems = append(elems, p.parseType())
	}
	closing := p.expect(tPunct, ")")
	if len(elems) == 1 {
		return elems[0]
	}
	return &ast.TupleType{Range: p.rangeOf(t, closing), Elems: elems}
}
