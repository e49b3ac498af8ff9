package cart

import "sync"

// Registry hands out one Store per user for the lifetime of the process.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// For returns the user's store, creating it on first use.
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = NewStore()
		r.stores[userID] = s
	}
	return s
}

// Len is the number of users holding a store.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
