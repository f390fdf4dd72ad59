package services

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"pipeline-workers/domain"
	"pipeline-workers/frame"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
)

// ArtifactReader is the read side of the shared artifact directory.
type ArtifactReader interface {
	List(prefix string) ([]repositories.ArtifactInfo, error)
	Read(name string) ([]byte, error)
	Stat(name string) (repositories.ArtifactInfo, error)
}

type cacheKey struct {
	name    string
	modTime int64
	size    int64
}

// DataLoader reads cleaned artifacts and their summaries. Parsed frames are
// cached until the file on disk changes.
type DataLoader struct {
	store  ArtifactReader
	cache  *lru.Cache[cacheKey, *frame.Frame]
	logger *zap.SugaredLogger
}

type FileInfo struct {
	Name     string    `json:"filename"`
	Size     int64     `json:"size_bytes"`
	SizeMB   float64   `json:"size_mb"`
	Modified time.Time `json:"modified"`
}

type DataSummary struct {
	TotalFiles  int     `json:"total_files"`
	TotalRows   int     `json:"total_rows"`
	TotalSizeMB float64 `json:"total_size_mb"`
	LatestFile  string  `json:"latest_file,omitempty"`
	OldestFile  string  `json:"oldest_file,omitempty"`
}

func NewDataLoader(store ArtifactReader, cacheSize int, logger *zap.SugaredLogger) (*DataLoader, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[cacheKey, *frame.Frame](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create frame cache")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &DataLoader{store: store, cache: cache, logger: logger}, nil
}

// AvailableFiles lists the cleaned artifacts, newest first.
func (l *DataLoader) AvailableFiles() ([]repositories.ArtifactInfo, error) {
	infos, err := l.store.List(domain.PrefixCleaned)
	if err != nil {
		return nil, err
	}
	files := make([]repositories.ArtifactInfo, 0, len(infos))
	for _, info := range infos {
		if domain.IsCleanedArtifact(info.Name) {
			files = append(files, info)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// LoadFrame returns the parsed cleaned artifact. The returned frame is shared
// with the cache and must not be modified.
func (l *DataLoader) LoadFrame(name string) (*frame.Frame, error) {
	if !domain.IsCleanedArtifact(name) {
		return nil, errors.Mark(errors.Newf("%q is not a cleaned artifact", name), domain.ErrNotFound)
	}
	info, err := l.store.Stat(name)
	if err != nil {
		return nil, err
	}
	key := cacheKey{name: name, modTime: info.ModTime.UnixNano(), size: info.Size}
	if f, ok := l.cache.Get(key); ok {
		return f, nil
	}

	data, err := l.store.Read(name)
	if err != nil {
		return nil, err
	}
	f, err := frame.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", name)
	}
	restoreDates(f)
	l.cache.Add(key, f)
	l.logger.Debugw("loaded cleaned artifact", "file", name, "rows", f.NumRows())
	return f, nil
}

// restoreDates turns text columns holding only dates back into datetime
// columns; CSV carries no type information.
func restoreDates(f *frame.Frame) {
	for _, c := range f.Columns {
		if c.Kind == frame.KindCategorical && frame.InferKind(c.Texts()) == frame.KindDatetime {
			c.Convert(frame.KindDatetime)
		}
	}
}

// LoadSummary returns the quality summary of a cleaned artifact, or nil when
// the file has not been quality-checked yet.
func (l *DataLoader) LoadSummary(name string) (*domain.QualitySummary, error) {
	data, err := l.store.Read(domain.SummaryArtifactName(name))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var s domain.QualitySummary
	if err := json.Unmarshal(data, &s); err != nil {
		l.logger.Warnw("ignoring unreadable quality summary", "file", name, "error", err)
		return nil, nil
	}
	return &s, nil
}

func (l *DataLoader) FileInfo(name string) (*FileInfo, error) {
	info, err := l.store.Stat(name)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Name:     info.Name,
		Size:     info.Size,
		SizeMB:   megabytes(info.Size),
		Modified: info.ModTime,
	}, nil
}

// DataSummary totals every cleaned artifact. Files that fail to parse still
// count towards size but not rows.
func (l *DataLoader) DataSummary() (DataSummary, error) {
	files, err := l.AvailableFiles()
	if err != nil {
		return DataSummary{}, err
	}
	s := DataSummary{TotalFiles: len(files)}
	if len(files) == 0 {
		return s, nil
	}
	var size int64
	for _, info := range files {
		size += info.Size
		f, err := l.LoadFrame(info.Name)
		if err != nil {
			l.logger.Warnw("skipping rows of unreadable artifact", "file", info.Name, "error", err)
			continue
		}
		s.TotalRows += f.NumRows()
	}
	s.TotalSizeMB = megabytes(size)
	s.LatestFile = files[0].Name
	s.OldestFile = files[len(files)-1].Name
	return s, nil
}

func megabytes(n int64) float64 {
	return float64(int64(float64(n)/(1024*1024)*100+0.5)) / 100
}
