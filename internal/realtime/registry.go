package realtime

import "sync"

// Registry tracks live subscriptions by owner, so that everything an owner opened
// can be released together when it goes away.
type Registry struct {
	mu     sync.Mutex
	owners map[string][]Unsubscribe
}

func NewRegistry() *Registry {
	return &Registry{owners: make(map[string][]Unsubscribe)}
}

// Add records unsubscribe under owner.
func (r *Registry) Add(owner string, unsubscribe Unsubscribe) {
	r.mu.Lock()
	r.owners[owner] = append(r.owners[owner], unsubscribe)
	r.mu.Unlock()
}

// Release unsubscribes everything owner holds.
func (r *Registry) Release(owner string) {
	r.mu.Lock()
	subs := r.owners[owner]
	delete(r.owners, owner)
	r.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
}

// Count is the number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, subs := range r.owners {
		n += len(subs)
	}
	return n
}

// Close releases every owner.
func (r *Registry) Close() {
	r.mu.Lock()
	owners := r.owners
	r.owners = make(map[string][]Unsubscribe)
	r.mu.Unlock()

	for _, subs := range owners {
		for _, unsubscribe := range subs {
			unsubscribe()
		}
	}
}
