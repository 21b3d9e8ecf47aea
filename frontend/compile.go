// Package frontend type checks the modules of a program: it parses their
// source, turns their declarations into types, and infers the type of every
// definition, resolving imported names through a resolve.Resolver.
package frontend

import (
	"context"
	"fmt"
	"go/token"

	"github.com/cottand/iletype/frontend/ast"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/parse"
	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/frontend/types"
	"github.com/cottand/iletype/internal/log"
	"github.com/pkg/errors"
)

var logger = log.DefaultLogger.With("section", "frontend")

var _ resolve.Compiler = Compiler{}

// Compiler compiles ile modules. The zero value is ready to use.
type Compiler struct {
	// Prelude lists modules imported by every module, on top of the ones
	// it imports itself. Prelude modules do not import each other implicitly.
	Prelude []string
}

// Compile is Compiler.Compile for a Compiler without prelude
func Compile(ctx context.Context, module string, src []byte, r *resolve.Resolver) (*resolve.Unit, error) {
	return Compiler{}.Compile(ctx, module, src, r)
}

// Compile type checks module and returns its public declarations.
// Diagnostics fail the compilation, and are returned as an *ilerr.Errors.
func (c Compiler) Compile(ctx context.Context, module string, src []byte, r *resolve.Resolver) (*resolve.Unit, error) {
	res, err := c.Check(ctx, module, src, r)
	if err != nil {
		return nil, err
	}
	if res.Errors.HasError() {
		return nil, res.Errors
	}
	return res.Unit(), nil
}

// Result is the outcome of type checking a module
type Result struct {
	Module  string
	FileSet *token.FileSet
	File    *ast.File
	Imports []string
	// Arena holds every type of the module. It must not be used concurrently.
	Arena *types.Arena
	// Declarations are the public declarations of the module, in source order
	Declarations []Declared
	Errors       *ilerr.Errors
}

// Declared is a public declaration of a module, typed in Result.Arena
type Declared struct {
	Name string
	Kind resolve.Kind
	Type types.Handle
}

// Lookup finds the declaration of the given kind called name
func (r *Result) Lookup(kind resolve.Kind, name string) (types.Handle, bool) {
	for _, d := range r.Declarations {
		if d.Kind == kind && d.Name == name {
			return d.Type, true
		}
	}
	return types.NoType, false
}

// TypeOf returns the printed type of expression-level declaration name,
// or "" if there is none
func (r *Result) TypeOf(name string) string {
	h, ok := r.Lookup(resolve.KindExpr, name)
	if !ok {
		return ""
	}
	return r.Arena.Show(h)
}

// Unit converts the declarations of r into their arena-free form
func (r *Result) Unit() *resolve.Unit {
	unit := &resolve.Unit{Module: r.Module, Imports: r.Imports}
	for _, d := range r.Declarations {
		unit.Declarations = append(unit.Declarations, resolve.Declaration{
			Name: reflect.NewQName(r.Module, d.Name),
			Kind: d.Kind,
			Type: reflect.Transform(r.Arena, d.Type),
		})
	}
	return unit
}

// Check type checks module without failing on diagnostics, which are
// collected in Result.Errors.
//
// The returned error is only set when checking had to stop early: because a
// name could not be resolved (an ilerr.NewUnresolvedReference), because an
// import failed to load, or because of a bug in the type engine. The partial
// Result is still returned.
func (c Compiler) Check(ctx context.Context, module string, src []byte, r *resolve.Resolver) (res *Result, err error) {
	fset := token.NewFileSet()
	res = &Result{Module: module, FileSet: fset, Arena: types.NewArena()}

	// parse phase
	file, parseErrs := parse.Parse(fset, resolve.ModulePath(module)+resolve.SourceExt, src)
	res.File = file
	res.Errors = res.Errors.Merge(parseErrs)
	if file.Module != "" && file.Module != module {
		res.Errors = res.Errors.With(ilerr.New(ilerr.NewParse{
			Positioner:    file,
			ParserMessage: fmt.Sprintf("module declares itself as %s, but was loaded as %s", file.Module, module),
		}))
	}

	ch := newChecker(ctx, res, r)
	defer func() {
		res.Errors = res.Errors.Merge(ch.errs)
		if recovered := recover(); recovered != nil {
			err = ch.recoverAbort(recovered)
		}
		if err != nil {
			logger.Debug("aborted module", "module", module, "err", err)
		}
	}()

	// import phase
	res.Imports = ch.loadImports(c.Prelude)

	// declaration phase
	ch.collect()
	ch.declareData()
	ch.declareSignatures()

	// inference phase
	ch.inferDefinitions()
	res.Declarations = ch.public()
	logger.Debug("checked module", "module", module, "declarations", len(res.Declarations), "errors", len(ch.errs.Errors()))
	return res, nil
}

// abort carries an error fatal to the module being checked
type abort struct {
	err error
}

func (ch *checker) abort(err error) {
	panic(abort{err: err})
}

func (ch *checker) recoverAbort(recovered any) error {
	switch v := recovered.(type) {
	case abort:
		if ileErr, ok := v.err.(ilerr.IleError); ok {
			ch.res.Errors = ch.res.Errors.With(ileErr)
		}
		return v.err
	case *types.UnknownVariantError:
		return errors.Wrapf(v, "checking module %s", ch.module)
	case *types.ForeignHandleError:
		return errors.Wrapf(v, "checking module %s", ch.module)
	default:
		panic(recovered)
	}
}
