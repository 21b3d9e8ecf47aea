package resolve

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	ArtifactExt = ".ilet"
	SourceExt   = ".ile"
)

// Strategy is one way of obtaining the Unit of a module.
// Load returns ok=false if the strategy does not know about module.
type Strategy interface {
	Name() string
	Load(ctx context.Context, module string, r *Resolver) (unit *Unit, ok bool, err error)
}

// ModulePath is the slash-separated path, without extension, where the
// artifact or source of module is looked up
func ModulePath(module string) string {
	return strings.ReplaceAll(module, ".", "/")
}

// ArtifactDir loads units from compiled artifacts in FS
type ArtifactDir struct {
	FS fs.FS
}

func (ArtifactDir) Name() string { return "artifacts" }

func (s ArtifactDir) Load(_ context.Context, module string, _ *Resolver) (*Unit, bool, error) {
	f, err := s.FS.Open(ModulePath(module) + ArtifactExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	return decodeUnit(f, module)
}

// Archive loads units from compiled artifacts packed in a zip file.
// The archive is only read the first time it is needed.
type Archive struct {
	FS   fs.FS
	Path string

	once   sync.Once
	reader *zip.Reader
	err    error
}

func (a *Archive) Name() string { return "archive " + a.Path }

func (a *Archive) open() (*zip.Reader, error) {
	a.once.Do(func() {
		bs, err := fs.ReadFile(a.FS, a.Path)
		if err != nil {
			a.err = err
			return
		}
		a.reader, a.err = zip.NewReader(bytes.NewReader(bs), int64(len(bs)))
		if a.err != nil {
			a.err = fmt.Errorf("malformed archive %s: %w", a.Path, a.err)
		}
	})
	return a.reader, a.err
}

func (a *Archive) Load(_ context.Context, module string, _ *Resolver) (*Unit, bool, error) {
	archive, err := a.open()
	if err != nil {
		return nil, false, err
	}
	f, err := archive.Open(ModulePath(module) + ArtifactExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	return decodeUnit(f, module)
}

// SourceDir compiles modules from the source files in FS
type SourceDir struct {
	FS       fs.FS
	Compiler Compiler
}

func (SourceDir) Name() string { return "source" }

func (s SourceDir) Load(ctx context.Context, module string, r *Resolver) (*Unit, bool, error) {
	src, err := fs.ReadFile(s.FS, ModulePath(module)+SourceExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	logger.Info("compiling module", "module", module)
	unit, err := s.Compiler.Compile(ctx, module, src, r)
	if err != nil {
		return nil, false, errors.Wrapf(err, "compiling %s", module)
	}
	unit.Schema = schemaVersion
	unit.Module = module
	if unit.BuildID == "" {
		unit.BuildID = uuid.NewString()
	}
	return unit, true, nil
}

// decodeUnit reads an artifact. Artifacts written with another schema
// version are skipped as if they did not exist, so that they get rebuilt.
func decodeUnit(r io.Reader, module string) (*Unit, bool, error) {
	unit := &Unit{}
	if err := msgpack.NewDecoder(r).Decode(unit); err != nil {
		return nil, false, errors.Wrapf(err, "decoding artifact of %s", module)
	}
	if unit.Schema != schemaVersion {
		logger.Info("ignoring stale artifact", "module", module, "schema", unit.Schema)
		return nil, false, nil
	}
	if unit.Module != module {
		return nil, false, errors.Errorf("artifact for module %s contains module %s", module, unit.Module)
	}
	return unit, true, nil
}

// EncodeUnit writes unit as an artifact. unit itself is not modified, as it
// may be shared with concurrent readers of the Resolver.
func EncodeUnit(w io.Writer, unit *Unit) error {
	stamped := *unit
	stamped.Schema = schemaVersion
	return msgpack.NewEncoder(w).Encode(&stamped)
}
