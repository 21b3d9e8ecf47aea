// Package ile ties the configuration of a project to the frontend: it
// decides where modules are looked up, compiles them, and stores what was
// compiled so that later builds can reuse it.
package ile

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"testing/fstest"

	"github.com/cottand/iletype/frontend"
	"github.com/cottand/iletype/frontend/ilerr"
	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/cottand/iletype/internal/config"
	"github.com/cottand/iletype/internal/log"
	"github.com/pkg/errors"
)

var packageLogger = log.DefaultLogger.With("section", "package")

// Workspace is a project: where its sources are, where its compiled
// modules go, and the resolver shared by everything compiled in it
type Workspace struct {
	Config   config.Config
	Compiler frontend.Compiler
	Resolver *resolve.Resolver
	// Store is where Build writes artifacts. It is nil for workspaces
	// without an artifact directory on disk.
	Store *resolve.ArtifactStore

	sources fs.FS
}

type Options struct {
	// Fresh ignores previously built artifacts, so that every module not
	// found in an archive is compiled from source
	Fresh bool
}

// Open creates the Workspace of the project configured by cfg
func Open(cfg config.Config, opts Options) *Workspace {
	var artifacts fs.FS
	if !opts.Fresh {
		artifacts = os.DirFS(cfg.ArtifactDir())
	}
	var archives []*resolve.Archive
	for _, p := range cfg.ArchivePaths() {
		archives = append(archives, &resolve.Archive{FS: os.DirFS(filepath.Dir(p)), Path: filepath.Base(p)})
	}
	w := NewWorkspace(cfg, os.DirFS(cfg.SourceDir()), artifacts, archives...)
	w.Store = resolve.NewArtifactStore(cfg.ArtifactDir())
	return w
}

// NewWorkspace creates a Workspace looking up modules in artifacts, then in
// archives, then in sources. artifacts may be nil.
func NewWorkspace(cfg config.Config, sources, artifacts fs.FS, archives ...*resolve.Archive) *Workspace {
	w := &Workspace{
		Config:   cfg,
		Compiler: frontend.Compiler{Prelude: cfg.Build.Prelude},
		sources:  sources,
	}
	var strategies []resolve.Strategy
	if artifacts != nil {
		strategies = append(strategies, resolve.ArtifactDir{FS: artifacts})
	}
	for _, archive := range archives {
		strategies = append(strategies, archive)
	}
	strategies = append(strategies, resolve.SourceDir{FS: sources, Compiler: w.Compiler})
	w.Resolver = resolve.New(strategies...)
	return w
}

// Modules lists the modules with a source file in the workspace, sorted.
// Hidden directories, like the default artifact directory, are skipped.
func (w *Workspace) Modules() ([]string, error) {
	var modules []string
	err := fs.WalkDir(w.sources, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) == resolve.SourceExt {
			modules = append(modules, strings.ReplaceAll(strings.TrimSuffix(p, resolve.SourceExt), "/", "."))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing modules")
	}
	slices.Sort(modules)
	return modules, nil
}

// Check type checks the source of module, whatever artifacts exist for it.
// Its imports are resolved through the workspace as usual.
func (w *Workspace) Check(ctx context.Context, module string) (*Package, error) {
	src, err := fs.ReadFile(w.sources, resolve.ModulePath(module)+resolve.SourceExt)
	if err != nil {
		return nil, errors.Wrapf(err, "reading source of %s", module)
	}
	return w.CheckSource(ctx, module, src)
}

// CheckSource type checks src as module
func (w *Workspace) CheckSource(ctx context.Context, module string, src []byte) (*Package, error) {
	res, err := w.Compiler.Check(ctx, module, src, w.Resolver)
	pkg := &Package{result: res, src: src}
	if err != nil {
		// checking stopped on a diagnostic, which is already in Errors
		if _, ok := err.(ilerr.IleError); ok {
			return pkg, nil
		}
		return pkg, err
	}
	packageLogger.Debug("checked module", "module", module, "errors", len(res.Errors.Errors()))
	return pkg, nil
}

// Build compiles modules, or every module of the workspace if none is
// given, and writes the artifacts of those compiled from source to Store
func (w *Workspace) Build(ctx context.Context, modules ...string) ([]resolve.LoadedUnit, error) {
	if len(modules) == 0 {
		var err error
		if modules, err = w.Modules(); err != nil {
			return nil, err
		}
	}
	units, err := w.Resolver.ResolveModules(ctx, modules...)
	if err != nil {
		return nil, err
	}
	if w.Store == nil {
		return units, nil
	}
	source := resolve.SourceDir{}.Name()
	for _, unit := range w.Resolver.Loaded() {
		if unit.Strategy != source {
			continue
		}
		if err := w.Store.Put(unit.Unit); err != nil {
			return nil, errors.Wrapf(err, "storing %s", unit.Module)
		}
	}
	return units, nil
}

// WriteArchive packs every module loaded so far into an archive
func (w *Workspace) WriteArchive(out io.Writer) error {
	loaded := w.Resolver.Loaded()
	units := make([]*resolve.Unit, len(loaded))
	for i, unit := range loaded {
		units[i] = unit.Unit
	}
	return resolve.WriteArchive(out, units...)
}

// Inspect resolves a declaration by its qualified name, looking for a type
// first and then for an expression
func (w *Workspace) Inspect(ctx context.Context, name string) (resolve.Declaration, error) {
	qname := reflect.QName(name)
	decl, err := w.Resolver.Resolve(ctx, resolve.TypeKey(qname))
	if resolve.IsNotFound(err) {
		return w.Resolver.Resolve(ctx, resolve.ExprKey(qname))
	}
	return decl, err
}

// Package is a type checked module, together with its source so that its
// errors can be displayed
type Package struct {
	result *frontend.Result
	src    []byte
}

var _ ilerr.Source = (*Package)(nil)

func (p *Package) Name() string { return p.result.Module }
func (p *Package) Result() *frontend.Result { return p.result }
func (p *Package) Errors() *ilerr.Errors { return p.result.Errors }
func (p *Package) FileSet() *token.FileSet { return p.result.FileSet }
func (p *Package) Source() []byte { return p.src }
func (p *Package) Imports() []string { return p.result.Imports }
func (p *Package) Declarations() []frontend.Declared {
	return p.result.Declarations
}

// DisplayTypes lists the public declarations of the package with their
// types, one per line
func (p *Package) DisplayTypes() string {
	sb := &strings.Builder{}
	for _, d := range p.result.Declarations {
		switch d.Kind {
		case resolve.KindType:
			fmt.Fprintf(sb, "data %s\n", p.result.Arena.ShowDefinition(d.Type))
		default:
			fmt.Fprintf(sb, "%s :: %s\n", d.Name, p.result.Arena.Show(d.Type))
		}
	}
	return sb.String()
}

// NewPackageFromBytes type checks a single module called test, meant for testing
func NewPackageFromBytes(data []byte) (*Package, *ilerr.Errors, error) {
	filesystem := fstest.MapFS{
		"test.ile": &fstest.MapFile{Data: data},
	}
	w := NewWorkspace(config.Default("."), filesystem, nil)
	pkg, err := w.Check(context.Background(), "test")
	if pkg == nil {
		return nil, nil, err
	}
	return pkg, pkg.Errors(), err
}
