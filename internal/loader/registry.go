package loader

import (
	"fmt"
	"sync"

	"github.com/nucleus/migrate-core/internal/model"
)

// Factory creates a loader instance from a configured load step.
type Factory func(step model.Step) (Loader, error)

// Registry holds loader factories indexed by type tag. Type tags are
// validated at configuration-load time so unknown destinations fail fast.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given type tag.
// Panics if the tag is already registered.
func (r *Registry) Register(typeTag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeTag]; exists {
		panic(fmt.Sprintf("loader factory already registered: %s", typeTag))
	}
	r.factories[typeTag] = factory
}

// Has reports whether a factory exists for the given type tag.
func (r *Registry) Has(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeTag]
	return ok
}

// Create instantiates a loader for the given step.
func (r *Registry) Create(step model.Step) (Loader, error) {
	r.mu.RLock()
	factory, ok := r.factories[step.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown loader type: %s", step.Type)
	}
	return factory(step)
}

// List returns all registered type tags.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	return tags
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global loader registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a factory to the default registry.
func Register(typeTag string, factory Factory) {
	defaultRegistry.Register(typeTag, factory)
}
