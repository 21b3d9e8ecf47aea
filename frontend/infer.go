package frontend

import (
	"github.com/benbjohnson/immutable"
	"github.com/cottand/iletype/frontend/ast"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/frontend/types"
	"github.com/pkg/errors"
)

// scope maps the parameters visible in an expression to their type. Local
// names are monomorphic: their type is used as is, never copied.
type scope = *immutable.Map[string, types.Handle]

func emptyScope() scope {
	return immutable.NewMap[string, types.Handle](immutable.NewHasher(""))
}

// inferDefinitions infers every definition of the module, in source order.
// Definitions referred to before their turn are inferred on demand.
func (ch *checker) inferDefinitions() {
	for _, e := range ch.exprOrder {
		if e.def != nil {
			ch.define(e)
		}
	}
}

// define infers the definition of e and checks it against its signatures
func (ch *checker) define(e *exprDecl) {
	if e.state != pending {
		return
	}
	a := ch.arena
	e.state = inProgress
	defer func() { e.state = done }()
	def := e.def

	expected := types.NoType
	// rigid maps the variables of the signature to the copies the definition
	// is checked against
	rigid := make(types.Instantiation)
	if e.declared != types.NoType {
		expected = a.GenericCopy(e.declared, rigid)
	} else {
		// recursive uses see the definition through this variable
		e.typ = a.FreshVariable(e.name)
	}

	locals := emptyScope()
	params := make([]types.Handle, len(def.Params))
	// with a single signature, parameters start out with their declared type
	declaredParam := expected
	if len(e.sigs) != 1 {
		declaredParam = types.NoType
	}
	for i, param := range def.Params {
		params[i] = a.FreshVariable(param.Name)
		if declaredParam != types.NoType && a.IsFunction(declaredParam) {
			a.Accepts(params[i], a.ArgumentOf(declaredParam))
			declaredParam = a.ResultOf(declaredParam)
		}
		locals = locals.Set(param.Name, params[i])
	}
	body := ch.infer(def.Body, locals)
	inferred := a.Functions(append(params, body)...)

	if expected != types.NoType {
		e.typ = e.declared
		if !a.Accepts(expected, inferred) || !ch.stayedGeneric(rigid) {
			ch.report(ilerr.New(ilerr.NewSignatureMismatch{
				Positioner: def,
				Name:       e.name,
				Declared:   a.Show(e.declared),
				Inferred:   a.Show(inferred),
			}))
		}
		return
	}

	a.Accepts(e.typ, inferred)
	e.typ = a.Expose(e.typ)
	if free := a.FreeVariables(e.typ); len(free) > 0 {
		names := make([]string, len(free))
		for i, v := range free {
			names[i] = a.Name(v)
		}
		ch.report(ilerr.New(ilerr.NewUnboundEscape{
			Positioner: def,
			Name:       e.name,
			Type:       a.Show(e.typ),
			Variables:  names,
		}))
	}
	logger.Debug("inferred definition", "module", ch.module, "name", e.name, "type", a.Show(e.typ))
}

// stayedGeneric reports whether the copies in rigid are still distinct
// variables. A signature variable the definition bound to a concrete type,
// or to another signature variable, means the definition is less generic
// than its signature.
func (ch *checker) stayedGeneric(rigid types.Instantiation) bool {
	a := ch.arena
	seen := make(map[types.Handle]bool, len(rigid))
	for _, copied := range rigid {
		target := a.Resolve(copied)
		if !a.IsUnbound(target) || seen[target] {
			return false
		}
		seen[target] = true
	}
	return true
}

// infer returns the type of expr. Type errors are reported and give the
// offending expression the Error type, which every type accepts.
func (ch *checker) infer(expr ast.Expr, locals scope) types.Handle {
	a := ch.arena
	switch expr := expr.(type) {
	case *ast.IntLiteral:
		return a.IntType()
	case *ast.FloatLiteral:
		return a.Simple(types.FloatName)
	case *ast.StringLiteral:
		return a.StringType()
	case *ast.UnitLiteral:
		return a.UnitType()
	case *ast.Ident:
		return ch.lookup(expr, locals)
	case *ast.Tuple:
		elems := make([]types.Handle, len(expr.Elems))
		for i, elem := range expr.Elems {
			elems[i] = ch.infer(elem, locals)
		}
		return a.TupleOf(elems...)
	case *ast.Lambda:
		params := make([]types.Handle, len(expr.Params))
		for i, param := range expr.Params {
			params[i] = a.FreshVariable(param.Name)
			locals = locals.Set(param.Name, params[i])
		}
		return a.Functions(append(params, ch.infer(expr.Body, locals))...)
	case *ast.If:
		cond := ch.infer(expr.Cond, locals)
		if !a.Accepts(a.BoolType(), cond) {
			ch.report(ilerr.New(ilerr.NewTypeMismatch{
				Positioner: expr.Cond,
				Expected:   types.BoolName,
				Found:      a.Show(cond),
				What:       "condition of " + expr.Describe(),
			}))
		}
		// both branches are accepted into one variable, which becomes
		// their union if they differ
		result := a.FreshVariable("if")
		a.Accepts(result, ch.infer(expr.Then, locals))
		a.Accepts(result, ch.infer(expr.Else, locals))
		return a.Expose(result)
	case *ast.Apply:
		return ch.apply(expr, locals)
	default:
		panic(errors.Errorf("unexpected expression %T", expr))
	}
}

// lookup finds the type of a name, looking at parameters first, then at
// the declarations of the module, then at builtins, then at imports.
// Declarations are copied at every use.
func (ch *checker) lookup(ident *ast.Ident, locals scope) types.Handle {
	a := ch.arena
	if t, ok := locals.Get(ident.Name); ok {
		return t
	}
	if e, ok := ch.exprs[ident.Name]; ok {
		switch {
		case e.declared != types.NoType:
			return a.GenericCopy(e.declared, nil)
		case e.state == pending:
			ch.define(e)
		case e.state == inProgress:
			return e.typ
		}
		return a.GenericCopy(e.typ, nil)
	}
	if builtin, ok := builtinValues[ident.Name]; ok {
		return builtin(a)
	}
	if t, ok := ch.lookupImported(resolve.KindExpr, ident.Name); ok {
		return a.GenericCopy(t, nil)
	}
	ch.abort(ilerr.New(ilerr.NewUnresolvedReference{Positioner: ident, Name: ident.Name, Module: ch.module}))
	return a.ErrorType()
}

// apply types a function application. The function may be overloaded: every
// function type it decomposes into is tried under a mark, and the results
// of those accepting the argument are accumulated.
func (ch *checker) apply(expr *ast.Apply, locals scope) types.Handle {
	a := ch.arena
	fn := ch.infer(expr.Func, locals)
	arg := ch.infer(expr.Arg, locals)

	if a.IsError(fn) {
		return a.ErrorType()
	}
	if a.IsUnbound(fn) {
		result := a.FreshVariable("r")
		a.Accepts(fn, a.Function(arg, result))
		return result
	}

	var results, expectedArgs []types.Handle
	for _, alternative := range a.Decompose(fn) {
		alternative = a.Resolve(alternative)
		if !a.IsFunction(alternative) {
			continue
		}
		expectedArgs = append(expectedArgs, a.ArgumentOf(alternative))
		m := a.Mark()
		if a.Accepts(a.ArgumentOf(alternative), arg) {
			a.Commit(m)
			results = append(results, a.ResultOf(alternative))
			continue
		}
		a.Rollback(m)
	}

	switch {
	case len(expectedArgs) == 0:
		ch.report(ilerr.New(ilerr.NewNotAFunction{Positioner: expr.Func, Found: a.Show(fn)}))
		return a.ErrorType()
	case len(results) == 0:
		ch.report(ilerr.New(ilerr.NewTypeMismatch{
			Positioner: expr.Arg,
			Expected:   a.Show(a.Union(expectedArgs...)),
			Found:      a.Show(arg),
			What:       "argument of " + ast.ExprString(expr.Func),
		}))
		return a.ErrorType()
	case len(results) > 1:
		logger.Debug("call site kept several overloads", "module", ch.module, "call", ast.ExprString(expr), "results", len(results))
	}
	return a.Union(results...)
}
