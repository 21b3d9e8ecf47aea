package frontend

import (
	"context"
	"slices"
	"strings"

	"github.com/cottand/iletype/frontend/ast"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/frontend/types"
	"github.com/pkg/errors"
)

type declState uint8

const (
	pending declState = iota
	inProgress
	done
)

// dataDecl is a data declaration of the module being checked
type dataDecl struct {
	decl  *ast.DataDecl
	qname string
	typ   types.Handle
	state declState
}

// exprDecl is an expression-level name of the module being checked: a
// definition, a constructor, or an extern declared only by its signatures
type exprDecl struct {
	name string
	pos  ast.Positioner
	sigs []*ast.Signature
	def  *ast.Definition
	// declared is the union of the signatures, if there are any
	declared types.Handle
	typ      types.Handle
	state    declState
}

type checker struct {
	ctx      context.Context
	res      *Result
	module   string
	arena    *types.Arena
	resolver *resolve.Resolver
	errs     *ilerr.Errors

	imports []string
	data    map[string]*dataDecl
	exprs   map[string]*exprDecl
	// order keeps declarations in source order, for stable output
	dataOrder []*dataDecl
	exprOrder []*exprDecl

	// imported caches materialised declarations, and misses as NoType
	imported map[resolve.Key]types.Handle
}

func newChecker(ctx context.Context, res *Result, r *resolve.Resolver) *checker {
	return &checker{
		ctx:      ctx,
		res:      res,
		module:   res.Module,
		arena:    res.Arena,
		resolver: r,
		data:     make(map[string]*dataDecl),
		exprs:    make(map[string]*exprDecl),
		imported: make(map[resolve.Key]types.Handle),
	}
}

func (ch *checker) report(err ilerr.IleError) {
	ch.errs = ch.errs.With(err)
}

func (ch *checker) qualify(name string) string {
	return string(reflect.NewQName(ch.module, name))
}

// loadImports loads every imported module, so that missing modules and
// import cycles are found before checking any declaration
func (ch *checker) loadImports(prelude []string) []string {
	var imports []string
	add := func(module string, pos ast.Positioner) {
		if module == ch.module || slices.Contains(imports, module) {
			return
		}
		if ch.resolver == nil {
			ch.abort(ilerr.New(ilerr.NewUnresolvedReference{Positioner: pos, Name: module, Module: ch.module}))
		}
		_, err := ch.resolver.Module(ch.ctx, module)
		if resolve.IsNotFound(err) {
			ch.abort(ilerr.New(ilerr.NewUnresolvedReference{Positioner: pos, Name: module, Module: ch.module}))
		}
		if err != nil {
			ch.abort(errors.Wrapf(err, "importing %s into %s", module, ch.module))
		}
		imports = append(imports, module)
	}
	for _, imp := range ch.res.File.Imports {
		add(imp.Module, imp)
	}
	if !slices.Contains(prelude, ch.module) {
		for _, module := range prelude {
			add(module, ch.res.File)
		}
	}
	ch.imports = imports
	return imports
}

// resolveImported looks key up in the resolver, materialising it into the
// arena of the module. The materialised type is shared by every use, which
// must copy it.
func (ch *checker) resolveImported(key resolve.Key) (types.Handle, bool) {
	if h, ok := ch.imported[key]; ok {
		return h, h != types.NoType
	}
	if ch.resolver == nil {
		return types.NoType, false
	}
	decl, err := ch.resolver.Resolve(ch.ctx, key)
	if resolve.IsNotFound(err) {
		ch.imported[key] = types.NoType
		return types.NoType, false
	}
	if err != nil {
		ch.abort(errors.Wrapf(err, "resolving %s", key))
	}
	h, err := reflect.Materialize(ch.arena, decl.Type)
	if err != nil {
		ch.abort(errors.Wrapf(err, "materialising %s", key))
	}
	ch.imported[key] = h
	return h, true
}

// lookupImported finds name in the imported modules. A qualified name is
// looked up as is. A name declared by several imports is the union of
// all of their declarations.
func (ch *checker) lookupImported(kind resolve.Kind, name string) (types.Handle, bool) {
	if strings.Contains(name, ".") {
		return ch.resolveImported(resolve.Key{Name: reflect.QName(name), Kind: kind})
	}
	var found []types.Handle
	for _, module := range ch.imports {
		if h, ok := ch.resolveImported(resolve.Key{Name: reflect.NewQName(module, name), Kind: kind}); ok {
			found = append(found, h)
		}
	}
	switch len(found) {
	case 0:
		return types.NoType, false
	case 1:
		return found[0], true
	default:
		return ch.arena.Union(found...), true
	}
}

// collect indexes the declarations of the file by name
func (ch *checker) collect() {
	f := ch.res.File
	for _, decl := range f.Data {
		if _, exists := ch.data[decl.Name]; exists || isBuiltinType(decl.Name) {
			ch.report(ilerr.New(ilerr.NewDuplicateDeclaration{Positioner: decl, Name: decl.Name}))
			continue
		}
		d := &dataDecl{decl: decl, qname: ch.qualify(decl.Name), typ: types.NoType}
		ch.data[decl.Name] = d
		ch.dataOrder = append(ch.dataOrder, d)
	}
	exprNamed := func(name string, pos ast.Positioner) *exprDecl {
		if e, ok := ch.exprs[name]; ok {
			return e
		}
		e := &exprDecl{name: name, pos: pos, declared: types.NoType, typ: types.NoType}
		ch.exprs[name] = e
		ch.exprOrder = append(ch.exprOrder, e)
		return e
	}
	for _, sig := range f.Signatures {
		e := exprNamed(sig.Name, sig)
		e.sigs = append(e.sigs, sig)
	}
	for _, def := range f.Definitions {
		e := exprNamed(def.Name, def)
		if e.def != nil {
			ch.report(ilerr.New(ilerr.NewDuplicateDeclaration{Positioner: def, Name: def.Name}))
			continue
		}
		e.def = def
	}
}

// declareData builds the type of every data declaration, and declares
// their constructors
func (ch *checker) declareData() {
	for _, d := range ch.dataOrder {
		ch.dataType(d)
	}
	for _, d := range ch.dataOrder {
		if d.typ == types.NoType || ch.arena.IsError(d.typ) {
			continue
		}
		ch.declareConstructors(d)
	}
}

// dataType builds d on first use. Declarations still being built, because
// they refer to themselves, are referred to by a Recursive placeholder.
func (ch *checker) dataType(d *dataDecl) types.Handle {
	a := ch.arena
	switch d.state {
	case inProgress:
		return a.Recursive(d.qname)
	case done:
		return d.typ
	}
	d.state = inProgress
	defer func() { d.state = done }()

	scope := &typeScope{vars: make(map[string]types.Handle)}
	params := make([]types.Handle, 0, len(d.decl.Params))
	for _, param := range d.decl.Params {
		if _, exists := scope.vars[param]; exists {
			ch.report(ilerr.New(ilerr.NewDuplicateDeclaration{Positioner: d.decl, Name: param}))
			continue
		}
		v := a.Variable(param)
		scope.vars[param] = v
		params = append(params, v)
	}

	if len(d.decl.Constructors) == 1 && d.decl.Constructors[0].Name == d.decl.Name {
		d.typ = a.Record(d.qname, params, ch.fields(d.decl.Constructors[0], scope)...)
		return d.typ
	}
	members := make([]types.Handle, 0, len(d.decl.Constructors))
	for _, ctor := range d.decl.Constructors {
		members = append(members, a.Member(d.qname, ch.qualify(ctor.Name), params, ch.fields(ctor, scope)...))
	}
	d.typ = a.Algebraic(d.qname, params, members...)
	return d.typ
}

func (ch *checker) fields(ctor *ast.Constructor, scope *typeScope) []types.Property {
	props := make([]types.Property, len(ctor.Fields))
	for i, field := range ctor.Fields {
		name := field.Name
		if name == "" {
			name = types.PositionalName(i)
		}
		props[i] = types.Property{Name: name, Type: ch.typeOf(field.Type, scope)}
	}
	return props
}

// declareConstructors makes every member of d available as a function
// from its fields to the member. Fields referring to d itself take the
// whole of d.
func (ch *checker) declareConstructors(d *dataDecl) {
	a := ch.arena
	for _, ctor := range d.decl.Constructors {
		member := d.typ
		if a.Kind(d.typ) == types.KindAlgebraic {
			qname := ch.qualify(ctor.Name)
			i := slices.IndexFunc(a.Members(d.typ), func(m types.Handle) bool { return a.Name(m) == qname })
			if i < 0 {
				continue
			}
			member = a.Members(d.typ)[i]
		}
		if _, exists := ch.exprs[ctor.Name]; exists {
			ch.report(ilerr.New(ilerr.NewDuplicateDeclaration{Positioner: ctor, Name: ctor.Name}))
			continue
		}
		unrolled := a.Unroll(member, d.typ)
		signature := make([]types.Handle, 0, len(a.Properties(unrolled))+1)
		for _, prop := range a.Properties(unrolled) {
			signature = append(signature, prop.Type)
		}
		signature = append(signature, member)
		e := &exprDecl{name: ctor.Name, pos: ctor, declared: types.NoType, typ: a.Functions(signature...), state: done}
		ch.exprs[ctor.Name] = e
		ch.exprOrder = append(ch.exprOrder, e)
	}
}

// declareSignatures types every signature. Several signatures of one name
// declare overloads, and the name has the union of their types.
func (ch *checker) declareSignatures() {
	for _, e := range ch.exprOrder {
		if len(e.sigs) == 0 {
			continue
		}
		sigs := make([]types.Handle, len(e.sigs))
		for i, sig := range e.sigs {
			sigs[i] = ch.typeOf(sig.Type, &typeScope{vars: make(map[string]types.Handle), open: true})
		}
		e.declared = ch.arena.Union(sigs...)
		if e.def == nil {
			// an extern, implemented outside the module
			e.typ = e.declared
			e.state = done
		}
	}
}

// public lists the declarations of the module the way other modules see them
func (ch *checker) public() []Declared {
	var ret []Declared
	for _, d := range ch.dataOrder {
		if d.typ != types.NoType {
			ret = append(ret, Declared{Name: d.decl.Name, Kind: resolve.KindType, Type: d.typ})
		}
	}
	for _, e := range ch.exprOrder {
		t := e.typ
		if e.declared != types.NoType {
			t = e.declared
		}
		if t != types.NoType {
			ret = append(ret, Declared{Name: e.name, Kind: resolve.KindExpr, Type: t})
		}
	}
	return ret
}

// typeScope holds the type variables a type expression may refer to
type typeScope struct {
	vars map[string]types.Handle
	// open scopes declare variables on first use, like signatures do
	open bool
}

func isBuiltinType(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}

// typeOf translates a type expression. Mistakes are reported, and the
// offending part is given the Error type.
func (ch *checker) typeOf(t ast.Type, scope *typeScope) types.Handle {
	a := ch.arena
	switch t := t.(type) {
	case *ast.TypeVar:
		if v, ok := scope.vars[t.Name]; ok {
			return v
		}
		if !scope.open {
			ch.report(ilerr.New(ilerr.NewUndefinedType{Positioner: t, Name: t.Name}))
			return a.ErrorType()
		}
		v := a.Variable(t.Name)
		scope.vars[t.Name] = v
		return v
	case *ast.FuncType:
		return a.Function(ch.typeOf(t.Arg, scope), ch.typeOf(t.Result, scope))
	case *ast.TupleType:
		elems := make([]types.Handle, len(t.Elems))
		for i, elem := range t.Elems {
			elems[i] = ch.typeOf(elem, scope)
		}
		return a.TupleOf(elems...)
	case *ast.UnitType:
		return a.UnitType()
	case *ast.TypeName:
		return ch.namedType(t, scope)
	default:
		panic(errors.Errorf("unexpected type expression %T", t))
	}
}

func (ch *checker) namedType(t *ast.TypeName, scope *typeScope) types.Handle {
	a := ch.arena
	args := make([]types.Handle, len(t.Args))
	for i, arg := range t.Args {
		args[i] = ch.typeOf(arg, scope)
	}
	if builtin, ok := builtinTypes[t.Name]; ok {
		if len(args) > 0 {
			ch.report(ilerr.New(ilerr.NewTypeArity{Positioner: t, Name: t.Name, Expected: 0, Found: len(args)}))
		}
		return a.Simple(builtin)
	}

	var generic types.Handle
	var arity int
	if d, ok := ch.data[t.Name]; ok {
		generic = ch.dataType(d)
		if a.Kind(generic) == types.KindRecursive {
			return generic
		}
		arity = len(d.decl.Params)
	} else if imported, ok := ch.lookupImported(resolve.KindType, t.Name); ok {
		generic = imported
		arity = len(a.Arguments(a.Resolve(imported)))
	} else {
		ch.report(ilerr.New(ilerr.NewUndefinedType{Positioner: t, Name: t.Name}))
		return a.ErrorType()
	}

	if len(args) != arity {
		ch.report(ilerr.New(ilerr.NewTypeArity{Positioner: t, Name: t.Name, Expected: arity, Found: len(args)}))
		return a.ErrorType()
	}
	if arity == 0 {
		return generic
	}
	return a.Apply(generic, args...)
}
