package repositories

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"pipeline-workers/domain"
)

const tempPrefix = ".tmp-"

// ArtifactInfo describes a file of the shared artifact directory.
type ArtifactInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// ArtifactStore is the flat shared data directory. Writers only ever expose
// complete files: data goes to a hidden temp file first and is renamed into
// place.
type ArtifactStore struct {
	fs  afero.Fs
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return NewArtifactStoreFs(afero.NewOsFs(), dir)
}

func NewArtifactStoreFs(fs afero.Fs, dir string) *ArtifactStore {
	return &ArtifactStore{fs: fs, dir: dir}
}

func (s *ArtifactStore) Dir() string { return s.dir }

// Ensure creates the directory if needed.
func (s *ArtifactStore) Ensure() error {
	return errors.Wrapf(s.fs.MkdirAll(s.dir, 0o755), "create artifact directory %s", s.dir)
}

func (s *ArtifactStore) Write(name string, data []byte) error {
	if err := domain.ValidateArtifactName(name); err != nil {
		return err
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	tmp, err := afero.TempFile(s.fs, s.dir, tempPrefix+name+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", name)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "sync %s", name)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close %s", name)
	}
	if err := s.fs.Rename(tmpName, s.path(name)); err != nil {
		cleanup()
		return errors.Wrapf(err, "publish %s", name)
	}
	return nil
}

func (s *ArtifactStore) Read(name string) ([]byte, error) {
	if err := domain.ValidateArtifactName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, s.path(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(domain.ErrNotFound, "artifact %s", name)
	}
	return data, errors.Wrapf(err, "read artifact %s", name)
}

func (s *ArtifactStore) Stat(name string) (ArtifactInfo, error) {
	if err := domain.ValidateArtifactName(name); err != nil {
		return ArtifactInfo{}, err
	}
	fi, err := s.fs.Stat(s.path(name))
	if os.IsNotExist(err) {
		return ArtifactInfo{}, errors.Wrapf(domain.ErrNotFound, "artifact %s", name)
	}
	if err != nil {
		return ArtifactInfo{}, errors.Wrapf(err, "stat artifact %s", name)
	}
	return toArtifactInfo(fi), nil
}

// List returns the regular files whose name starts with prefix, sorted by
// name. In-flight temp files are never listed. A missing directory lists
// as empty.
func (s *ArtifactStore) List(prefix string) ([]ArtifactInfo, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list artifact directory %s", s.dir)
	}
	var out []ArtifactInfo
	for _, fi := range entries {
		name := fi.Name()
		if fi.IsDir() || strings.HasPrefix(name, tempPrefix) || !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, toArtifactInfo(fi))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *ArtifactStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func toArtifactInfo(fi os.FileInfo) ArtifactInfo {
	return ArtifactInfo{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime().UTC()}
}
