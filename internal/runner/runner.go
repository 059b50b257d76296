// Package runner sequences one job through its extract, transform and load
// phases, threading the tabular state forward and bounding the lifetime of
// dependency ledgers around each phase.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
	"github.com/nucleus/migrate-core/internal/phase"
)

// Status tracks a job's progress through its phases.
type Status string

const (
	StatusBuilt            Status = "BUILT"
	StatusExtractRunning   Status = "EXTRACT_RUNNING"
	StatusTransformRunning Status = "TRANSFORM_RUNNING"
	StatusLoadRunning      Status = "LOAD_RUNNING"
	StatusDone             Status = "DONE"
	StatusFailed           Status = "FAILED"
)

// Options wires the collaborators a runner needs.
type Options struct {
	Phases    *phase.Registry  // nil means the default registry
	Loaders   *loader.Registry // nil means the default registry
	Ledgers   *ledger.Registry // dependency ledger cache; may be nil
	Manager   *ledger.Manager  // ledger finalization; may be nil
	Reporter  loader.Reporter  // progress signal; may be nil
	BatchSize int              // rows per loader invocation; 0 = whole table
}

// Runner executes one job. Build instantiates the phase processors;
// Process runs the phases in order.
type Runner struct {
	job  *model.Job
	opts Options

	extract   phase.Processor
	transform phase.Processor
	chain     *loader.Chain

	state  *model.Table
	status Status
}

// New creates a runner for the given job.
func New(job *model.Job, opts Options) *Runner {
	if opts.Phases == nil {
		opts.Phases = phase.DefaultRegistry()
	}
	if opts.Loaders == nil {
		opts.Loaders = loader.DefaultRegistry()
	}
	return &Runner{job: job, opts: opts}
}

// Build instantiates one processor per phase from the registries. Unknown
// step types fail here, before any execution.
func (r *Runner) Build() error {
	extract, err := phase.Build(r.opts.Phases, r.job.Extract)
	if err != nil {
		return fmt.Errorf("job %s: %w", r.job.Name, err)
	}
	transform, err := phase.Build(r.opts.Phases, r.job.Transform)
	if err != nil {
		return fmt.Errorf("job %s: %w", r.job.Name, err)
	}

	instances := make([]loader.Instance, 0, len(r.job.Load))
	for _, step := range r.job.Load {
		l, err := r.opts.Loaders.Create(step)
		if err != nil {
			return fmt.Errorf("job %s: %w", r.job.Name, err)
		}
		instances = append(instances, loader.Instance{Loader: l, Primary: step.Primary})
	}

	reporter := r.opts.Reporter
	if reporter == nil {
		reporter = loader.NewReporter(r.job.Name)
	}

	r.extract = extract
	r.transform = transform
	r.chain = loader.NewChain(r.job.Name, reporter, instances...)
	r.status = StatusBuilt
	return nil
}

// Process runs all three phases in order. After the load phase the chain's
// ledgers are finalized and the loaders closed.
func (r *Runner) Process(ctx context.Context) error {
	for _, p := range model.Phases {
		if err := r.ProcessPhase(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ProcessPhase runs a single named phase. Around the phase it loads the
// ledgers of declared dependencies into the registry and unloads them
// afterwards. Running one phase in isolation is legal and used for
// previewing extraction or transformation.
func (r *Runner) ProcessPhase(ctx context.Context, p model.PhaseType) error {
	if r.status == "" {
		return fmt.Errorf("job %s: runner not built", r.job.Name)
	}

	proc, running, err := r.processor(p)
	if err != nil {
		return err
	}
	r.status = running

	r.loadDependencies(ctx)
	defer r.unloadDependencies()

	state, err := proc.Process(ctx, r.state)
	if err != nil {
		r.status = StatusFailed
		return fmt.Errorf("job %s phase %s: %w", r.job.Name, p, err)
	}
	r.state = state

	if p == model.PhaseLoad {
		if r.opts.Manager != nil {
			if _, err := r.opts.Manager.Finalize(ctx, r.job, r.chain.Sources()); err != nil {
				r.status = StatusFailed
				return fmt.Errorf("job %s: finalize ledgers: %w", r.job.Name, err)
			}
		}
		if err := r.chain.Close(); err != nil {
			log.Printf("job=%s closing loaders: %v", r.job.Name, err)
		}
		r.status = StatusDone
	}
	return nil
}

// Status returns the runner's current status.
func (r *Runner) Status() Status { return r.status }

// State returns the current tabular state.
func (r *Runner) State() *model.Table { return r.state }

// SetState seeds the tabular state, used when running a single later phase
// against previously extracted data.
func (r *Runner) SetState(state *model.Table) { r.state = state }

func (r *Runner) processor(p model.PhaseType) (phase.Processor, Status, error) {
	switch p {
	case model.PhaseExtract:
		return r.extract, StatusExtractRunning, nil
	case model.PhaseTransform:
		return r.transform, StatusTransformRunning, nil
	case model.PhaseLoad:
		return &loader.ChainProcessor{Chain: r.chain, BatchSize: r.opts.BatchSize}, StatusLoadRunning, nil
	}
	return nil, r.status, fmt.Errorf("job %s: unknown phase %q", r.job.Name, p)
}

// loadDependencies pulls the persisted ledgers of every declared dependency
// into the registry. A dependency with no prior output logs and continues.
func (r *Runner) loadDependencies(ctx context.Context) {
	if r.opts.Ledgers == nil {
		return
	}
	for _, dep := range r.job.DependsOn {
		if _, err := r.opts.Ledgers.Get(ctx, dep); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				log.Printf("job=%s dependency=%s has no ledger, continuing", r.job.Name, dep)
				continue
			}
			log.Printf("job=%s dependency=%s ledger load failed: %v", r.job.Name, dep, err)
		}
	}
}

func (r *Runner) unloadDependencies() {
	if r.opts.Ledgers == nil {
		return
	}
	for _, dep := range r.job.DependsOn {
		r.opts.Ledgers.Unload(dep)
	}
}
