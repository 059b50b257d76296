package ledger

import (
	"context"
	"sync"
)

// JobLookup reports whether a job name exists in the loaded configuration.
type JobLookup func(name string) bool

// Registry caches persisted ledgers by job name. A dependent job loads its
// dependencies' ledgers through Get before each phase and evicts them with
// Unload afterwards, bounding cache lifetime to the dependent's active
// window. Execution is sequential; the mutex only guards map access.
type Registry struct {
	store  *Store
	lookup JobLookup

	mu    sync.Mutex
	cache map[string]*Ledger
}

// NewRegistry creates a ledger registry over the given store. lookup may be
// nil, in which case any job name is assumed to exist.
func NewRegistry(store *Store, lookup JobLookup) *Registry {
	return &Registry{
		store:  store,
		lookup: lookup,
		cache:  make(map[string]*Ledger),
	}
}

// Get returns the most recently persisted ledger for the named job, loading
// and caching it on a miss. Returns ErrNotFound when the job is not
// configured or has no persisted ledger.
func (r *Registry) Get(ctx context.Context, job string) (*Ledger, error) {
	r.mu.Lock()
	if l, ok := r.cache[job]; ok {
		r.mu.Unlock()
		return l, nil
	}
	r.mu.Unlock()

	if r.lookup != nil && !r.lookup(job) {
		return nil, ErrNotFound
	}

	l, err := r.store.Latest(ctx, job, job)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[job] = l
	r.mu.Unlock()
	return l, nil
}

// Unload evicts the named job's cached ledger.
func (r *Registry) Unload(job string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, job)
}

// Loaded returns the cached job names.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.cache))
	for name := range r.cache {
		names = append(names, name)
	}
	return names
}
