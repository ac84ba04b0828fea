package routetree

import (
	"sync"

	"github.com/starford/routetree/internal/models"
)

// Store owns the tree and serializes access to it: one writer at a time,
// readers share a consistent snapshot for the whole call.
type Store struct {
	mu   sync.RWMutex
	tree *Tree
}

// NewStore returns a store over an empty tree.
func NewStore() *Store {
	return &Store{tree: NewTree()}
}

// View runs fn under the shared lock.
func (s *Store) View(fn func(View) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.tree)
}

// Update runs fn under the exclusive lock. Validation, persistence and the
// final Insert or Commit belong in the same fn so nothing can slip in between.
func (s *Store) Update(fn func(*Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tree)
}

// Submit validates d against the current tree and inserts it.
func (s *Store) Submit(d models.Draft) (models.Route, error) {
	var out models.Route
	err := s.Update(func(t *Tree) error {
		v, err := Validate(d, t)
		if err != nil {
			return err
		}
		id := t.Insert(v)
		out, err = t.Get(id)
		return err
	})
	return out, err
}

// Get returns the route with the given id.
func (s *Store) Get(id int64) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Get(id)
}

// Child returns the id of the child of id in direction dir.
func (s *Store) Child(id int64, dir models.Direction) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Child(id, dir)
}

// Children returns the left then right child of id.
func (s *Store) Children(id int64) ([]models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Children(id)
}

// LastReachable follows dir from startID until no child exists that way.
func (s *Store) LastReachable(startID int64, dir models.Direction) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.LastReachable(startID, dir)
}

// Longest returns the earliest route with the largest duration.
func (s *Store) Longest() (models.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Longest()
}

// Shortest returns the earliest route with the smallest duration.
func (s *Store) Shortest() (models.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Shortest()
}

// Depth counts parent hops from id to the root.
func (s *Store) Depth(id int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Depth(id)
}

// All returns every route in creation order.
func (s *Store) All() []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.All()
}

// Len returns the number of routes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Stats returns the dashboard summary.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Stats()
}
