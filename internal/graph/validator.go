// Package graph validates the job dependency graph before any execution.
//
// Validation collects every violation in one pass rather than failing fast,
// so a single run surfaces all problems in a configuration.
package graph

import (
	"sort"

	"github.com/nucleus/migrate-core/internal/model"
)

// Result holds the outcome of validating a job list.
type Result struct {
	// Errors holds every violation found, in detection order.
	Errors []error

	// Plan lists the jobs cleared for execution, in configuration order.
	// Jobs with a missing or cyclic dependency are excluded.
	Plan []*model.Job
}

// OK reports whether validation found no violations.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// Fatal reports whether execution must not proceed at all. Any cycle is
// fatal to the whole run; other violations only exclude the offending job.
func (r *Result) Fatal() bool {
	for _, err := range r.Errors {
		if _, ok := err.(*CircularDependencyError); ok {
			return true
		}
	}
	return false
}

// Validate builds the dependency map for the given jobs and checks for
// cycles, unknown dependencies, and declaration-order violations.
func Validate(jobs []*model.Job) *Result {
	res := &Result{}

	index := make(map[string]*model.Job, len(jobs))
	for _, job := range jobs {
		index[job.Name] = job
	}

	excluded := map[string]bool{}

	// Unknown and misordered dependencies, in configuration order.
	for _, job := range jobs {
		for _, dep := range job.DependsOn {
			target, ok := index[dep]
			if !ok {
				res.Errors = append(res.Errors, &UnknownDependencyError{Job: job.Name, Dependency: dep})
				excluded[job.Name] = true
				continue
			}
			if target.Order > job.Order {
				res.Errors = append(res.Errors, &OrderViolationError{Job: job.Name, Dependency: dep})
			}
		}
	}

	// Depth-first cycle detection with an active path stack.
	const (
		white = 0 // unvisited
		grey  = 1 // on the active path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(jobs))
	var path []string
	var cycles [][]string

	var visit func(name string)
	visit = func(name string) {
		color[name] = grey
		path = append(path, name)
		job := index[name]
		for _, dep := range job.DependsOn {
			if _, ok := index[dep]; !ok {
				continue
			}
			switch color[dep] {
			case white:
				visit(dep)
			case grey:
				// dep is on the active path: slice out the cycle and
				// close it back on itself.
				for i, n := range path {
					if n == dep {
						cycle := append(append([]string(nil), path[i:]...), dep)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
	}

	for _, job := range jobs {
		if color[job.Name] == white {
			visit(job.Name)
		}
	}

	cyclic := map[string]bool{}
	for _, cycle := range cycles {
		res.Errors = append(res.Errors, &CircularDependencyError{Path: cycle})
		for _, name := range cycle {
			cyclic[name] = true
		}
	}

	for _, job := range jobs {
		if excluded[job.Name] || cyclic[job.Name] {
			continue
		}
		res.Plan = append(res.Plan, job)
	}
	sort.SliceStable(res.Plan, func(i, j int) bool {
		return res.Plan[i].Order < res.Plan[j].Order
	})
	return res
}
