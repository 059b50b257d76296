package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError reports a dependency cycle. Path holds every job
// on the cycle, closing back on the first entry.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Path, " -> "))
}

// UnknownDependencyError reports a dependency on a job that does not exist.
type UnknownDependencyError struct {
	Job        string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("job %s depends on unknown job %s", e.Job, e.Dependency)
}

// OrderViolationError reports a dependency declared after its dependent.
type OrderViolationError struct {
	Job        string
	Dependency string
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("job %s depends on %s which is declared later in configuration", e.Job, e.Dependency)
}
