// Package favorites keeps the user's pinned services and their manual order.
package favorites

import (
	"errors"
	"sync"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
)

// ErrEmptyName is returned when a favorite operation gets an empty name.
var ErrEmptyName = errors.New("service name must not be empty")

// Persister loads and saves the favorite set and order.
type Persister interface {
	LoadFavorites() (set []string, order []string, err error)
	SaveFavorites(set []string, order []string) error
}

// Store holds the favorite set and its order. Every name in the set
// appears exactly once in the order and vice versa.
type Store struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string

	persister Persister
	path      string
	log       logger.Logger
}

// New returns an empty store backed by p. path is only used in error messages.
func New(p Persister, path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		set:       make(map[string]struct{}),
		persister: p,
		path:      path,
		log:       log,
	}
}

// Load replaces the in-memory state with the persisted one, repairing any
// drift between set and order.
func (s *Store) Load() error {
	set, order, err := s.persister.LoadFavorites()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.set = make(map[string]struct{}, len(set))
	for _, name := range set {
		if name != "" {
			s.set[name] = struct{}{}
		}
	}

	s.order = s.order[:0]
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := s.set[name]; !ok || seen[name] {
			continue
		}
		seen[name] = true
		s.order = append(s.order, name)
	}
	for _, name := range set {
		if _, ok := s.set[name]; ok && !seen[name] {
			seen[name] = true
			s.order = append(s.order, name)
		}
	}

	if len(s.order) != len(order) || len(s.set) != len(set) {
		s.log.Info("repaired favorites state",
			logger.Int("set", len(set)),
			logger.Int("order", len(order)),
			logger.Int("count", len(s.order)),
		)
	}
	return nil
}

// Toggle adds name to the favorites or removes it. It reports whether the
// name is a favorite afterwards.
func (s *Store) Toggle(name string) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool
	if _, ok := s.set[name]; ok {
		delete(s.set, name)
		for i, n := range s.order {
			if n == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	} else {
		s.set[name] = struct{}{}
		s.order = append(s.order, name)
		added = true
	}

	return added, s.persistLocked()
}

// IsFavorite reports whether name is a favorite.
func (s *Store) IsFavorite(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.set[name]
	return ok
}

// Ordered returns the favorites in their manual order.
func (s *Store) Ordered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if _, ok := s.set[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// MoveUp swaps name with the favorite before it. Absent names and the
// first position are no-ops.
func (s *Store) MoveUp(name string) error {
	return s.move(name, -1)
}

// MoveDown swaps name with the favorite after it. Absent names and the
// last position are no-ops.
func (s *Store) MoveDown(name string) error {
	return s.move(name, 1)
}

func (s *Store) move(name string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, n := range s.order {
		if n == name {
			idx = i
			break
		}
	}
	target := idx + delta
	if idx < 0 || target < 0 || target >= len(s.order) {
		return nil
	}

	s.order[idx], s.order[target] = s.order[target], s.order[idx]
	return s.persistLocked()
}

// persistLocked writes both collections. A failure leaves the in-memory
// state as is.
func (s *Store) persistLocked() error {
	set := make([]string, 0, len(s.set))
	for name := range s.set {
		set = append(set, name)
	}
	order := append([]string(nil), s.order...)

	if err := s.persister.SaveFavorites(set, order); err != nil {
		s.log.Error("failed to persist favorites", logger.String("path", s.path), logger.Error(err))
		return apperrors.NewStatePersistError(s.path, err)
	}
	return nil
}
