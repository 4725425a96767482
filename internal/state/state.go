// Package state persists small key/value lists between runs.
//
// The file is YAML, one key per list, and is rewritten wholesale through a
// temp file and rename so a crash never leaves it half written.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
)

// Keys used for favorites.
const (
	KeyFavorites      = "favoriteServices"
	KeyFavoritesOrder = "favoriteServicesOrder"
)

// Store is a YAML-backed map of string lists.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string][]string
}

// Open reads path if it exists. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: make(map[string][]string),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string][]string)
	}

	return s, nil
}

// Load opens path like Open, but an unreadable or corrupt file is logged
// and replaced by an empty store. The next write overwrites it.
func Load(path string, log logger.Logger) *Store {
	s, err := Open(path)
	if err == nil {
		return s
	}
	if log == nil {
		log = logger.NewNop()
	}
	log.Error("state file unusable, starting without favorites",
		logger.String("path", path),
		logger.Error(apperrors.NewStatePersistError(path, err)),
	)
	return &Store{path: path, data: make(map[string][]string)}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the list stored under key.
func (s *Store) Get(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.data[key]...)
}

// Update replaces every key in values and writes the file.
// On a failed write the in-memory values are kept.
func (s *Store) Update(values map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.data[k] = append([]string(nil), v...)
	}
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	out, err := yaml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadFavorites returns the persisted favorite set and order.
func (s *Store) LoadFavorites() (set []string, order []string, err error) {
	return s.Get(KeyFavorites), s.Get(KeyFavoritesOrder), nil
}

// SaveFavorites overwrites both favorite keys in one write.
// The set is stored sorted so the file diffs cleanly.
func (s *Store) SaveFavorites(set []string, order []string) error {
	sorted := append([]string(nil), set...)
	sort.Strings(sorted)

	return s.Update(map[string][]string{
		KeyFavorites:      sorted,
		KeyFavoritesOrder: order,
	})
}
