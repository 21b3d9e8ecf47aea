package resolve

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/iletype/frontend/reflect"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Resolver maps declaration keys to their types, loading each module at most
// once through the first of its strategies that provides it.
//
// Resolved declarations are published in a persistent map, so lookups of
// already resolved keys never block. Concurrent first-time lookups of the
// same key, or of keys of the same module, share one load.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	strategies []Strategy

	decls atomic.Pointer[immutable.Map[Key, Declaration]]
	units atomic.Pointer[immutable.Map[string, LoadedUnit]]
	// publishing serialises writers of decls and units
	publishing sync.Mutex

	keys    singleflight.Group
	modules singleflight.Group

	waitMu sync.Mutex
	// waiting maps a module being compiled to the module it is waiting on
	waiting map[string]string
}

// LoadedUnit is a Unit together with the name of the strategy that provided it
type LoadedUnit struct {
	*Unit
	Strategy string
}

// New creates a Resolver trying strategies in the given order
func New(strategies ...Strategy) *Resolver {
	r := &Resolver{
		strategies: strategies,
		waiting:    make(map[string]string),
	}
	r.decls.Store(immutable.NewMap[Key, Declaration](keyHasher{}))
	r.units.Store(immutable.NewMap[string, LoadedUnit](nil))
	return r
}

// Resolve returns the declaration identified by key, loading its module if
// needed. It returns a *NotFoundError if no strategy provides it.
func (r *Resolver) Resolve(ctx context.Context, key Key) (Declaration, error) {
	if decl, ok := r.decls.Load().Get(key); ok {
		return decl, nil
	}
	module := key.Name.Module()
	if module == "" {
		return Declaration{}, &NotFoundError{Key: key}
	}
	release, err := r.await(ctx, module)
	if err != nil {
		return Declaration{}, err
	}
	defer release()

	// the flight is shared with later callers, so it must outlive the
	// cancellation of the caller that started it
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := r.keys.Do(key.String(), func() (any, error) {
		if decl, ok := r.decls.Load().Get(key); ok {
			return decl, nil
		}
		_, err := r.load(flightCtx, module)
		// only the module itself missing, not a failure while compiling it
		if notFound, ok := err.(*NotFoundError); ok {
			return nil, &NotFoundError{Key: key, Module: module, Tried: notFound.Tried}
		}
		if err != nil {
			return nil, err
		}
		if decl, ok := r.decls.Load().Get(key); ok {
			return decl, nil
		}
		return nil, &NotFoundError{Key: key, Module: module}
	})
	if err != nil {
		return Declaration{}, err
	}
	return v.(Declaration), nil
}

// Module returns the unit of module, loading it if needed
func (r *Resolver) Module(ctx context.Context, module string) (LoadedUnit, error) {
	release, err := r.await(ctx, module)
	if err != nil {
		return LoadedUnit{}, err
	}
	defer release()
	return r.load(ctx, module)
}

// ResolveModules loads modules in parallel. Each module that needs
// compiling is compiled in its own goroutine, with its own arena.
func (r *Resolver) ResolveModules(ctx context.Context, modules ...string) ([]LoadedUnit, error) {
	ret := make([]LoadedUnit, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, module := range modules {
		i, module := i, module
		g.Go(func() error {
			unit, err := r.Module(gctx, module)
			if err != nil {
				return err
			}
			ret[i] = unit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Loaded returns the units loaded so far, sorted by module name
func (r *Resolver) Loaded() []LoadedUnit {
	units := r.units.Load()
	ret := make([]LoadedUnit, 0, units.Len())
	itr := units.Iterator()
	for !itr.Done() {
		_, unit, _ := itr.Next()
		ret = append(ret, unit)
	}
	slices.SortFunc(ret, func(a, b LoadedUnit) int { return cmp.Compare(a.Module, b.Module) })
	return ret
}

func (r *Resolver) load(ctx context.Context, module string) (LoadedUnit, error) {
	if unit, ok := r.units.Load().Get(module); ok {
		return unit, nil
	}
	if err := ctx.Err(); err != nil {
		return LoadedUnit{}, err
	}
	v, err, shared := r.modules.Do(module, func() (any, error) {
		if unit, ok := r.units.Load().Get(module); ok {
			return unit, nil
		}
		ctx := withCompiling(context.WithoutCancel(ctx), module)
		tried := make([]string, 0, len(r.strategies))
		for _, strategy := range r.strategies {
			tried = append(tried, strategy.Name())
			unit, ok, err := strategy.Load(ctx, module, r)
			if err != nil {
				logger.Warn("failed to load module", "module", module, "strategy", strategy.Name(), "err", err)
				return nil, &ResolutionError{Module: module, Strategy: strategy.Name(), Err: errors.WithStack(err)}
			}
			if !ok {
				continue
			}
			loaded := LoadedUnit{Unit: unit, Strategy: strategy.Name()}
			r.publish(loaded)
			logger.Debug("loaded module", "module", module, "strategy", strategy.Name(), "declarations", len(unit.Declarations))
			return loaded, nil
		}
		return nil, &NotFoundError{Module: module, Tried: tried}
	})
	if shared {
		logger.Debug("joined in-flight module load", "module", module)
	}
	if err != nil {
		return LoadedUnit{}, err
	}
	return v.(LoadedUnit), nil
}

func (r *Resolver) publish(loaded LoadedUnit) {
	r.publishing.Lock()
	defer r.publishing.Unlock()
	decls := r.decls.Load()
	for _, decl := range loaded.Declarations {
		if decl.Name.Module() != loaded.Module {
			decl.Name = reflect.NewQName(loaded.Module, decl.Name.Local())
		}
		decls = decls.Set(decl.Key(), decl)
	}
	r.decls.Store(decls)
	r.units.Store(r.units.Load().Set(loaded.Module, loaded))
}

// await records that the module compiling in ctx, if any, is about to wait
// on module, and fails if that closes a cycle. release must be called once
// the wait is over.
func (r *Resolver) await(ctx context.Context, module string) (release func(), err error) {
	waiter, ok := compilingIn(ctx)
	if !ok {
		return func() {}, nil
	}
	r.waitMu.Lock()
	defer r.waitMu.Unlock()
	path := []string{waiter}
	for at := module; ; {
		path = append(path, at)
		if at == waiter {
			return nil, &CycleError{Modules: path}
		}
		next, ok := r.waiting[at]
		if !ok {
			break
		}
		at = next
	}
	r.waiting[waiter] = module
	return func() {
		r.waitMu.Lock()
		defer r.waitMu.Unlock()
		delete(r.waiting, waiter)
	}, nil
}

type compilingKey struct{}

// withCompiling marks ctx as belonging to the compilation of module
func withCompiling(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, compilingKey{}, module)
}

func compilingIn(ctx context.Context) (string, bool) {
	module, ok := ctx.Value(compilingKey{}).(string)
	return module, ok
}
