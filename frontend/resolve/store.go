package resolve

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// ArtifactStore writes compiled units where ArtifactDir can find them
type ArtifactStore struct {
	mu  sync.Mutex
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) Dir() string { return s.dir }

// Path is where the artifact of module is stored
func (s *ArtifactStore) Path(module string) string {
	return filepath.Join(s.dir, filepath.FromSlash(ModulePath(module))+ArtifactExt)
}

// Put writes unit to a temporary file and renames it into place, so that
// readers never observe a partially written artifact
func (s *ArtifactStore) Put(unit *Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(unit.Module)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating artifact directory")
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating artifact")
	}
	defer func() {
		if removeErr := os.Remove(f.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("failed to remove temporary artifact", "path", f.Name(), "err", removeErr)
		}
	}()
	if err := EncodeUnit(f, unit); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "encoding artifact of %s", unit.Module)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "closing artifact")
	}
	logger.Debug("wrote artifact", "module", unit.Module, "path", path)
	return os.Rename(f.Name(), path)
}

// WriteArchive packs units into a zip archive readable by Archive
func WriteArchive(w io.Writer, units ...*Unit) error {
	zw := zip.NewWriter(w)
	for _, unit := range units {
		entry, err := zw.Create(ModulePath(unit.Module) + ArtifactExt)
		if err != nil {
			return errors.Wrapf(err, "adding %s to archive", unit.Module)
		}
		if err := EncodeUnit(entry, unit); err != nil {
			return errors.Wrapf(err, "encoding artifact of %s", unit.Module)
		}
	}
	return zw.Close()
}
