package loader

import (
	"context"
	"errors"
	"log"
	"runtime"

	"github.com/nucleus/migrate-core/internal/core"
	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/model"
)

// Instance pairs a loader with its configured primary flag.
type Instance struct {
	Loader  Loader
	Primary bool
}

// Chain runs an ordered list of loaders against the same batch. When a
// loader reports row mutations, every loader after it in the chain observes
// the mutated rows instead of the originals; untouched rows flow unchanged.
//
// Loaders are independent of one another's success: a transient destination
// error logs a warning and the chain continues with the batch as of the
// last successful step, and an unrecognized error likewise logs and
// continues. Nothing here retries.
type Chain struct {
	jobName   string
	instances []Instance
	reporter  Reporter
}

// NewChain creates a chain for one job run.
func NewChain(jobName string, reporter Reporter, instances ...Instance) *Chain {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Chain{jobName: jobName, instances: instances, reporter: reporter}
}

// Run executes every loader against the batch in declared order and returns
// the batch as the last loader saw it, mutations applied.
func (c *Chain) Run(ctx context.Context, batch *model.Batch) (*model.Batch, error) {
	if err := ctx.Err(); err != nil {
		return batch, err
	}
	for _, inst := range c.instances {
		name := inst.Loader.Name()
		if err := inst.Loader.Run(ctx, batch); err != nil {
			var coded core.CodedError
			if errors.As(err, &coded) && coded.RetryableStatus() {
				log.Printf("job=%s loader=%s destination unavailable, continuing: %v", c.jobName, name, err)
			} else {
				log.Printf("job=%s loader=%s write failed, continuing: %v", c.jobName, name, err)
			}
			// No progress signal for rows the loader never handled.
			continue
		}
		if mutator, ok := inst.Loader.(RowMutator); ok && mutator.HasMutatedRows() {
			batch = batch.ApplyMutations(mutator.CollectMutatedRows())
		}
		c.reporter.RowsProcessed(name, batch.Len())
	}
	return batch, nil
}

// RunAll splits the table into batches of at most batchSize rows, runs the
// chain over each, and returns the resulting table. After the full table is
// processed it drops intermediate buffers and requests garbage collection so
// long runs over many small batches do not accumulate memory.
func (c *Chain) RunAll(ctx context.Context, table *model.Table, batchSize int) (*model.Table, error) {
	if table.Len() == 0 {
		return table, nil
	}
	out := &model.Table{Columns: append([]string(nil), table.Columns...)}
	batches := table.Batches(batchSize)
	for _, batch := range batches {
		processed, err := c.Run(ctx, batch)
		if err != nil {
			return out, err
		}
		out.Rows = append(out.Rows, processed.Rows...)
	}
	c.reclaim(batches)
	return out, nil
}

// Sources adapts the chain's loaders into ledger sources for finalization.
func (c *Chain) Sources() []ledger.Source {
	out := make([]ledger.Source, 0, len(c.instances))
	for _, inst := range c.instances {
		src := ledger.Source{
			Name:    inst.Loader.Name(),
			Kind:    inst.Loader.Kind(),
			Primary: inst.Primary,
		}
		if provider, ok := inst.Loader.(LedgerProvider); ok && provider.HasLedger() {
			src.Ledger = provider.Ledger()
		}
		out = append(out, src)
	}
	return out
}

// Close closes every loader, returning the first error.
func (c *Chain) Close() error {
	var first error
	for _, inst := range c.instances {
		if err := inst.Loader.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Chain) reclaim(batches []*model.Batch) {
	for i := range batches {
		batches[i] = nil
	}
	runtime.GC()
}

// ChainProcessor adapts a chain to the phase processor contract for the
// load phase.
type ChainProcessor struct {
	Chain     *Chain
	BatchSize int
}

func (p *ChainProcessor) Process(ctx context.Context, state *model.Table) (*model.Table, error) {
	return p.Chain.RunAll(ctx, state, p.BatchSize)
}
