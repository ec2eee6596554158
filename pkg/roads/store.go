package roads

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownDataset means no file for the requested dataset name exists
// in the data directory.
var ErrUnknownDataset = errors.New("unknown dataset")

// LoaderFunc reads one source file and returns its road segments.
type LoaderFunc func(path string, log *zap.Logger) ([]Segment, error)

// Dataset is a named, fully ingested segment collection.
type Dataset struct {
	Name     string
	Segments []Segment
}

type loaderEntry struct {
	suffix string
	load   LoaderFunc
}

// Store resolves dataset names to files under a data directory, loads them
// through registered loaders and caches the result. Safe for concurrent use.
type Store struct {
	dir string
	log *zap.Logger

	mu      sync.Mutex
	loaders []loaderEntry
	cache   map[string]*Dataset
}

// NewStore creates a store rooted at dir with the GeoJSON loader
// pre-registered. Additional formats are added with Register.
func NewStore(dir string, log *zap.Logger) *Store {
	s := &Store{
		dir:   dir,
		log:   log,
		cache: make(map[string]*Dataset),
	}
	s.Register(".geojson", LoadGeoJSON)
	return s
}

// Register adds a loader for files named <dataset><suffix>. Suffixes are
// tried in registration order during Load.
func (s *Store) Register(suffix string, load LoaderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders = append(s.loaders, loaderEntry{suffix: suffix, load: load})
}

// Load returns the named dataset, reading it from disk on first use.
// Unknown names and names that escape the data directory yield
// ErrUnknownDataset.
func (s *Store) Load(name string) (*Dataset, error) {
	if !validName(name) {
		return nil, ErrUnknownDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.cache[name]; ok {
		return ds, nil
	}

	for _, entry := range s.loaders {
		path := filepath.Join(s.dir, name+entry.suffix)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		started := time.Now()
		segments, err := entry.load(path, s.log)
		if err != nil {
			return nil, err
		}

		ds := &Dataset{Name: name, Segments: segments}
		s.cache[name] = ds
		s.log.Info("dataset loaded",
			zap.String("dataset", name),
			zap.Int("segments", len(segments)),
			zap.Duration("elapsed", time.Since(started)))
		return ds, nil
	}

	return nil, ErrUnknownDataset
}

// CacheInfo reports the segment count of every cached dataset.
func (s *Store) CacheInfo() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := make(map[string]int, len(s.cache))
	for name, ds := range s.cache {
		info[name] = len(ds.Segments)
	}
	return info
}

// Clear drops all cached datasets. The next Load rereads from disk.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Dataset)
}

// validName rejects empty names and anything that could traverse out of
// the data directory.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
