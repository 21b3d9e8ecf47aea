package resolve_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cottand/iletype/frontend/reflect"
	"github.com/cottand/iletype/frontend/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var intInfo = reflect.TypeInfo{Kind: "simple", Name: "Int"}

func unitOf(module string, names ...string) *resolve.Unit {
	unit := &resolve.Unit{Module: module, BuildID: "test"}
	for _, name := range names {
		unit.Declarations = append(unit.Declarations, resolve.Declaration{
			Name: reflect.NewQName(module, name),
			Kind: resolve.KindExpr,
			Type: intInfo,
		})
	}
	return unit
}

func artifact(t *testing.T, unit *resolve.Unit) *fstest.MapFile {
	buf := &bytes.Buffer{}
	require.NoError(t, resolve.EncodeUnit(buf, unit))
	return &fstest.MapFile{Data: buf.Bytes()}
}

func archive(t *testing.T, units ...*resolve.Unit) *fstest.MapFile {
	buf := &bytes.Buffer{}
	require.NoError(t, resolve.WriteArchive(buf, units...))
	return &fstest.MapFile{Data: buf.Bytes()}
}

// countingCompiler declares every name listed in the source, one per line
type countingCompiler struct {
	calls   atomic.Int32
	delay   time.Duration
	resolve map[string]resolve.Key
}

func (c *countingCompiler) Compile(ctx context.Context, module string, src []byte, r *resolve.Resolver) (*resolve.Unit, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if key, ok := c.resolve[module]; ok {
		if _, err := r.Resolve(ctx, key); err != nil {
			return nil, err
		}
	}
	var names []string
	for _, line := range bytes.Split(bytes.TrimSpace(src), []byte("\n")) {
		names = append(names, string(line))
	}
	return unitOf(module, names...), nil
}

func TestStrategiesAreTriedInOrder(t *testing.T) {
	ctx := context.Background()
	compiler := &countingCompiler{}
	artifacts := fstest.MapFS{"std.ilet": artifact(t, unitOf("std", "fromArtifact"))}
	packed := fstest.MapFS{"lib.zip": archive(t, unitOf("std", "fromArchive"), unitOf("collections", "fromArchive"))}
	sources := fstest.MapFS{
		"std.ile":         {Data: []byte("fromSource")},
		"collections.ile": {Data: []byte("fromSource")},
		"app/main.ile":    {Data: []byte("fromSource")},
	}
	r := resolve.New(
		resolve.ArtifactDir{FS: artifacts},
		&resolve.Archive{FS: packed, Path: "lib.zip"},
		resolve.SourceDir{FS: sources, Compiler: compiler},
	)

	_, err := r.Resolve(ctx, resolve.ExprKey("std.fromArtifact"))
	require.NoError(t, err)
	_, err = r.Resolve(ctx, resolve.ExprKey("collections.fromArchive"))
	require.NoError(t, err)
	decl, err := r.Resolve(ctx, resolve.ExprKey("app.main.fromSource"))
	require.NoError(t, err)
	assert.Equal(t, intInfo, decl.Type)

	_, err = r.Resolve(ctx, resolve.ExprKey("std.fromSource"))
	assert.True(t, resolve.IsNotFound(err), "the artifact shadows the source")

	loaded := r.Loaded()
	require.Len(t, loaded, 3)
	assert.Equal(t, "app.main", loaded[0].Module)
	assert.Equal(t, "source", loaded[0].Strategy)
	assert.Equal(t, "archive lib.zip", loaded[1].Strategy)
	assert.Equal(t, "artifacts", loaded[2].Strategy)
	assert.EqualValues(t, 1, compiler.calls.Load())
}

func TestModulesAreCompiledAtMostOnce(t *testing.T) {
	ctx := context.Background()
	compiler := &countingCompiler{delay: 20 * time.Millisecond}
	r := resolve.New(resolve.SourceDir{
		FS:       fstest.MapFS{"std.ile": {Data: []byte("one\ntwo\nthree")}},
		Compiler: compiler,
	})

	names := []reflect.QName{"std.one", "std.two", "std.three"}
	wg := sync.WaitGroup{}
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			decl, err := r.Resolve(ctx, resolve.ExprKey(names[i%len(names)]))
			if err == nil && decl.Name != names[i%len(names)] {
				err = errors.New("wrong declaration " + string(decl.Name))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, compiler.calls.Load())

	_, err := r.Resolve(ctx, resolve.ExprKey("std.one"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, compiler.calls.Load())
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	r := resolve.New(
		resolve.ArtifactDir{FS: fstest.MapFS{"std.ilet": artifact(t, unitOf("std", "one"))}},
		resolve.SourceDir{FS: fstest.MapFS{}, Compiler: &countingCompiler{}},
	)

	t.Run("missing module", func(t *testing.T) {
		_, err := r.Resolve(ctx, resolve.ExprKey("nope.one"))
		require.Error(t, err)
		assert.True(t, resolve.IsNotFound(err))
		assert.Equal(t, "expr nope.one not found (tried artifacts, source)", err.Error())
	})

	t.Run("missing declaration", func(t *testing.T) {
		_, err := r.Resolve(ctx, resolve.TypeKey("std.one"))
		assert.True(t, resolve.IsNotFound(err), "kinds are separate namespaces")
		_, err = r.Resolve(ctx, resolve.ExprKey("std.two"))
		assert.True(t, resolve.IsNotFound(err))
	})

	t.Run("unqualified name", func(t *testing.T) {
		_, err := r.Resolve(ctx, resolve.ExprKey("one"))
		assert.True(t, resolve.IsNotFound(err))
	})
}

type brokenFS struct{}

func (brokenFS) Open(string) (fs.File, error) { return nil, fs.ErrPermission }

func TestInfrastructureFailuresAreNotNotFound(t *testing.T) {
	ctx := context.Background()
	cases := map[string]resolve.Strategy{
		"unreadable directory": resolve.ArtifactDir{FS: brokenFS{}},
		"malformed archive":    &resolve.Archive{FS: fstest.MapFS{"lib.zip": {Data: []byte("not a zip")}}, Path: "lib.zip"},
		"missing archive":      &resolve.Archive{FS: fstest.MapFS{}, Path: "lib.zip"},
		"malformed artifact":   resolve.ArtifactDir{FS: fstest.MapFS{"std.ilet": {Data: []byte{0xc1}}}},
		"mislabelled artifact": resolve.ArtifactDir{FS: fstest.MapFS{"std.ilet": artifact(t, unitOf("other", "one"))}},
	}
	for name, strategy := range cases {
		t.Run(name, func(t *testing.T) {
			r := resolve.New(strategy)
			_, err := r.Resolve(ctx, resolve.ExprKey("std.one"))
			require.Error(t, err)
			assert.False(t, resolve.IsNotFound(err))
			var resolutionErr *resolve.ResolutionError
			require.ErrorAs(t, err, &resolutionErr)
			assert.Equal(t, "std", resolutionErr.Module)
			assert.Equal(t, strategy.Name(), resolutionErr.Strategy)
		})
	}
}

func TestStaleArtifactsAreSkipped(t *testing.T) {
	stale, err := msgpack.Marshal(struct {
		Schema uint16 `msgpack:"schema"`
		Module string `msgpack:"module"`
	}{Schema: 0, Module: "std"})
	require.NoError(t, err)

	r := resolve.New(
		resolve.ArtifactDir{FS: fstest.MapFS{"std.ilet": {Data: stale}}},
		resolve.SourceDir{FS: fstest.MapFS{"std.ile": {Data: []byte("new")}}, Compiler: &countingCompiler{}},
	)
	unit, err := r.Module(context.Background(), "std")
	require.NoError(t, err)
	assert.Equal(t, "source", unit.Strategy)
}

func TestImportCycles(t *testing.T) {
	ctx := context.Background()
	t.Run("self import", func(t *testing.T) {
		r := resolve.New(resolve.SourceDir{
			FS:       fstest.MapFS{"a.ile": {Data: []byte("x")}},
			Compiler: &countingCompiler{resolve: map[string]resolve.Key{"a": resolve.ExprKey("a.x")}},
		})
		_, err := r.Resolve(ctx, resolve.ExprKey("a.x"))
		var cycle *resolve.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "a"}, cycle.Modules)
	})

	t.Run("mutual import", func(t *testing.T) {
		r := resolve.New(resolve.SourceDir{
			FS: fstest.MapFS{"a.ile": {Data: []byte("x")}, "b.ile": {Data: []byte("y")}},
			Compiler: &countingCompiler{resolve: map[string]resolve.Key{
				"a": resolve.ExprKey("b.y"),
				"b": resolve.ExprKey("a.x"),
			}},
		})
		_, err := r.Resolve(ctx, resolve.ExprKey("a.x"))
		var cycle *resolve.CycleError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, "import cycle: b -> a -> b", cycle.Error())
	})

	t.Run("parallel mutual import", func(t *testing.T) {
		r := resolve.New(resolve.SourceDir{
			FS: fstest.MapFS{"a.ile": {Data: []byte("x")}, "b.ile": {Data: []byte("y")}},
			Compiler: &countingCompiler{delay: 10 * time.Millisecond, resolve: map[string]resolve.Key{
				"a": resolve.ExprKey("b.y"),
				"b": resolve.ExprKey("a.x"),
			}},
		})
		_, err := r.ResolveModules(ctx, "a", "b")
		var cycle *resolve.CycleError
		require.ErrorAs(t, err, &cycle)
	})
}

func TestResolveModules(t *testing.T) {
	compiler := &countingCompiler{
		delay:   5 * time.Millisecond,
		resolve: map[string]resolve.Key{"app": resolve.ExprKey("std.one")},
	}
	r := resolve.New(resolve.SourceDir{
		FS:       fstest.MapFS{"std.ile": {Data: []byte("one")}, "app.ile": {Data: []byte("main")}},
		Compiler: compiler,
	})
	units, err := r.ResolveModules(context.Background(), "app", "std", "app")
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "app", units[0].Module)
	assert.Equal(t, "std", units[1].Module)
	assert.EqualValues(t, 2, compiler.calls.Load())
}

func TestArtifactStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := resolve.NewArtifactStore(dir)
	require.NoError(t, store.Put(unitOf("std.collections", "empty")))
	assert.FileExists(t, store.Path("std.collections"))

	r := resolve.New(resolve.ArtifactDir{FS: os.DirFS(dir)})
	decl, err := r.Resolve(context.Background(), resolve.ExprKey("std.collections.empty"))
	require.NoError(t, err)
	assert.Equal(t, intInfo, decl.Type)

	entries, err := os.ReadDir(dir + "/std")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestEncodingLeavesPublishedUnitsAlone(t *testing.T) {
	unit := unitOf("std", "one")
	require.Zero(t, unit.Schema)

	r := resolve.New(resolve.ArtifactDir{FS: fstest.MapFS{"std.ilet": artifact(t, unit)}})
	assert.Zero(t, unit.Schema, "the encoded copy carries the schema, not unit")

	decl, err := r.Resolve(context.Background(), resolve.ExprKey("std.one"))
	require.NoError(t, err)
	assert.Equal(t, intInfo, decl.Type)

	loaded := r.Loaded()
	require.Len(t, loaded, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = r.Loaded()[0].Schema
		}
	}()
	require.NoError(t, resolve.WriteArchive(&bytes.Buffer{}, loaded[0].Unit))
	require.NoError(t, resolve.NewArtifactStore(t.TempDir()).Put(loaded[0].Unit))
	<-done
}

func TestCancelledCallerDoesNotFailJoinedCallers(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	compiler := resolve.CompilerFunc(func(ctx context.Context, module string, _ []byte, _ *resolve.Resolver) (*resolve.Unit, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return unitOf(module, "one"), nil
	})
	r := resolve.New(resolve.SourceDir{FS: fstest.MapFS{"std.ile": {Data: []byte("one")}}, Compiler: compiler})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(first, resolve.ExprKey("std.one"))
		firstErr <- err
	}()
	<-started

	joinedErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), resolve.ExprKey("std.one"))
		joinedErr <- err
	}()
	cancel()
	close(release)

	assert.NoError(t, <-joinedErr)
	assert.NoError(t, <-firstErr)
	_, err := r.Resolve(context.Background(), resolve.ExprKey("std.one"))
	assert.NoError(t, err)
}
