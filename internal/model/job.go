package model

// Step is one configured phase step: a registered type tag plus parameters.
type Step struct {
	Type    string         `yaml:"type"`
	Primary bool           `yaml:"primary,omitempty"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// Job is one named unit of migration work. Immutable once loaded from
// configuration.
type Job struct {
	Name string `yaml:"name"`

	// DependsOn lists jobs whose ledgers this job may consult. Dependencies
	// must be declared earlier in configuration order than their dependents.
	DependsOn []string `yaml:"depends_on,omitempty"`

	// Skip excludes the job from execution while keeping it in the graph
	// for ordering purposes.
	Skip bool `yaml:"skip,omitempty"`

	// PrincipalEntity names the destination entity kind this job exists to
	// create. Used to pick the primary ledger when no loader is flagged.
	PrincipalEntity string `yaml:"principal_entity,omitempty"`

	Extract   []Step `yaml:"extract,omitempty"`
	Transform []Step `yaml:"transform,omitempty"`
	Load      []Step `yaml:"load,omitempty"`

	// Order is the job's index in configuration order, assigned at load time.
	Order int `yaml:"-"`
}

// PhaseType identifies one of the three phases of a job.
type PhaseType string

const (
	PhaseExtract   PhaseType = "extract"
	PhaseTransform PhaseType = "transform"
	PhaseLoad      PhaseType = "load"
)

// Phases lists the phases in execution order.
var Phases = []PhaseType{PhaseExtract, PhaseTransform, PhaseLoad}

// Steps returns the job's step list for the given phase.
func (j *Job) Steps(phase PhaseType) []Step {
	switch phase {
	case PhaseExtract:
		return j.Extract
	case PhaseTransform:
		return j.Transform
	case PhaseLoad:
		return j.Load
	}
	return nil
}
