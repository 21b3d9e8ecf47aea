package parse

import (
	"github.com/cottand/iletype/frontend/ast"
)

type precedence struct {
	level      int
	rightAssoc bool
}

var operators = map[string]precedence{
	"==": {level: 4},
	"!=": {level: 4},
	"<":  {level: 4},
	">":  {level: 4},
	"<=": {level: 4},
	">=": {level: 4},
	"++": {level: 5, rightAssoc: true},
	"+":  {level: 6},
	"-":  {level: 6},
	"*":  {level: 7},
	"/":  {level: 7},
	"%":  {level: 7},
}

// user-defined operators bind tighter than every built-in one
var defaultPrecedence = precedence{level: 9}

func precedenceOf(op string) precedence {
	if prec, ok := operators[op]; ok {
		return prec
	}
	return defaultPrecedence
}

// reserved operators are punctuation of declarations, never infix operators
func isInfix(t tok) bool {
	if t.kind != tOp {
		return false
	}
	switch t.text {
	case "=", "::", ":", "->", "|":
		return false
	}
	return true
}

func (p *parser) parseExpr() ast.Expr {
	first := p.peek()
	switch {
	case first.is(tPunct, "\\"):
		p.next()
		var params []ast.Param
		for !p.accept(tOp, "->") {
			param := p.expectIdent()
			params = append(params, ast.Param{Range: p.rangeOf(param, param), Name: param.text})
		}
		if len(params) == 0 {
			p.fail(first, "a function needs at least one parameter")
		}
		body := p.parseExpr()
		return &ast.Lambda{Range: p.rangeOf(first, p.last()), Params: params, Body: body}
	case first.is(tIdent, "if"):
		p.next()
		cond := p.parseExpr()
		p.expect(tIdent, "then")
		then := p.parseExpr()
		p.expect(tIdent, "else")
		els := p.parseExpr()
		return &ast.If{Range: p.rangeOf(first, p.last()), Cond: cond, Then: then, Else: els}
	default:
		return p.parseInfix(0)
	}
}

// parseInfix is precedence climbing over binary operators, which are
// applied as curried functions: `a + b` is `((+) a) b`
func (p *parser) parseInfix(minLevel int) ast.Expr {
	left := p.parseApplication()
	for {
		opTok := p.peek()
		if !isInfix(opTok) {
			return left
		}
		prec := precedenceOf(opTok.text)
		if prec.level < minLevel {
			return left
		}
		p.next()
		nextMin := prec.level + 1
		if prec.rightAssoc {
			nextMin = prec.level
		}
		var right ast.Expr
		if p.peek().is(tPunct, "\\") || p.peek().is(tIdent, "if") {
			right = p.parseExpr()
		} else {
			right = p.parseInfix(nextMin)
		}
		op := &ast.Ident{Range: p.rangeOf(opTok, opTok), Name: opTok.text}
		partial := &ast.Apply{Range: ast.RangeBetween(left, op), Func: op, Arg: left}
		left = &ast.Apply{Range: ast.RangeBetween(left, right), Func: partial, Arg: right}
	}
}

func (p *parser) parseApplication() ast.Expr {
	fn := p.parseAtom()
	for p.startsAtom() {
		arg := p.parseAtom()
		fn = &ast.Apply{Range: ast.RangeBetween(fn, arg), Func: fn, Arg: arg}
	}
	return fn
}

func (p *parser) startsAtom() bool {
	t := p.peek()
	switch t.kind {
	case tInt, tFloat, tString:
		return true
	case tIdent:
		return !isKeyword(t.text)
	case tPunct:
		return t.text == "("
	default:
		return false
	}
}

func (p *parser) parseAtom() ast.Expr {
	t := p.next()
	r := p.rangeOf(t, t)
	switch t.kind {
	case tInt:
		return &ast.IntLiteral{Range: r, Value: t.text}
	case tFloat:
		return &ast.FloatLiteral{Range: r, Value: t.text}
	case tString:
		return &ast.StringLiteral{Range: r, Value: t.text}
	case tIdent:
		if isKeyword(t.text) {
			p.fail(t, "unexpected keyword '%s'", t.text)
		}
		return &ast.Ident{Range: r, Name: t.text}
	}
	if !t.is(tPunct, "(") {
		p.fail(t, "expected an expression, found %s", describe(t))
	}
	if closing := p.peek(); closing.is(tPunct, ")") {
		p.next()
		return &ast.UnitLiteral{Range: p.rangeOf(t, closing)}
	}
	if op := p.peek(); isInfix(op) && p.at+1 < p.end && p.toks[p.at+1].is(tPunct, ")") {
		p.next()
		closing := p.next()
		return &ast.Ident{Range: p.rangeOf(t, closing), Name: op.text}
	}
	elems := []ast.Expr{p.parseExpr()}
	for p.accept(tPunct, ",") {
		elems = append(elems, p.parseExpr())
	}
	closing := p.expect(tPunct, ")")
	if len(elems) == 1 {
		return elems[0]
	}
	return &ast.Tuple{Range: p.rangeOf(t, closing), Elems: elems}
}
