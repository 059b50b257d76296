// Package phase defines the processor contract for the extract and
// transform phases, and the string-keyed factory registry that resolves
// configured step types. Unknown type tags fail at configuration-load time
// rather than mid-run.
package phase

import (
	"context"
	"fmt"
	"sync"

	"github.com/nucleus/migrate-core/internal/model"
)

// Processor runs one phase step against the current tabular state and
// returns the replacement state. Adapter internals are opaque to the
// orchestration core.
type Processor interface {
	Process(ctx context.Context, state *model.Table) (*model.Table, error)
}

// Factory creates a processor instance from a configured step.
type Factory func(step model.Step) (Processor, error)

// Registry holds processor factories indexed by step type tag.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given type tag.
// Panics if the tag is already registered.
func (r *Registry) Register(typeTag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeTag]; exists {
		panic(fmt.Sprintf("phase processor factory already registered: %s", typeTag))
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

// Create instantiates a processor for the given step.
func (r *Registry) Create(step model.Step) (Processor, error) {
	r.mu.RLock()
	factory, ok := r.factories[step.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown processor type: %s", step.Type)
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

// DefaultRegistry returns the global processor registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a factory to the default registry.
func Register(typeTag string, factory Factory) {
	defaultRegistry.Register(typeTag, factory)
}

// Pipeline runs an ordered list of processors, threading the state forward.
type Pipeline []Processor

func (p Pipeline) Process(ctx context.Context, state *model.Table) (*model.Table, error) {
	for _, proc := range p {
		out, err := proc.Process(ctx, state)
		if err != nil {
			return state, err
		}
		state = out
	}
	return state, nil
}

// Build instantiates a pipeline for the given steps from the registry.
func Build(r *Registry, steps []model.Step) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(steps))
	for _, step := range steps {
		proc, err := r.Create(step)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, proc)
	}
	return pipeline, nil
}
