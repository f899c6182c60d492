package cart

import "sync"

// Store keeps one cart per user for the lifetime of the process. Carts are
// not persisted across restarts.
type Store struct {
	mu    sync.RWMutex
	carts map[int]Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[int]Cart)}
}

// Get returns the user's current cart, or an empty cart if none exists.
func (s *Store) Get(userID int) Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[userID]
}

// Apply replaces the user's cart with the result of fn applied to the
// current cart, and returns the new cart.
func (s *Store) Apply(userID int, fn func(Cart) Cart) Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := fn(s.carts[userID])
	s.carts[userID] = c
	return c
}

// Clear discards the user's cart.
func (s *Store) Clear(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
