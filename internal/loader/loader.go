// Package loader defines the destination-writer contract and the chain
// executor that runs an ordered list of loaders against one batch, making
// one loader's row mutations visible to the loaders after it.
//
// Architecture:
//
//	Loader         - Base contract (Name, Kind, Run, Close)
//	RowMutator     - Optional: reports replacement rows keyed by row uid
//	LedgerProvider - Optional: exposes the side-effect ledger for the run
//	Chain          - Ordered execution with mutation visibility
//
// Loaders compose the optional interfaces based on their capabilities, the
// same way connectors compose source and sink contracts.
package loader

import (
	"context"

	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/model"
)

// Loader writes one batch of rows to a destination.
type Loader interface {
	// Name returns the configured loader instance name.
	Name() string

	// Kind returns the destination entity kind this loader produces.
	Kind() string

	// Run writes the batch to the destination. Failures on individual rows
	// must not abort the batch; the loader's ledger reflects only rows it
	// actually succeeded on.
	Run(ctx context.Context, batch *model.Batch) error

	// Close releases any resources held by the loader.
	Close() error
}

// RowMutator is implemented by loaders that mint destination identifiers
// (or otherwise rewrite rows) that loaders later in the chain must observe.
type RowMutator interface {
	// HasMutatedRows reports whether the last Run produced replacements.
	HasMutatedRows() bool

	// CollectMutatedRows returns replacement rows keyed by row unique
	// identifier and resets the mutation set. Untouched rows are absent;
	// they keep flowing via the unmodified batch.
	CollectMutatedRows() map[string]model.Row
}

// LedgerProvider is implemented by loaders that record side effects.
type LedgerProvider interface {
	// HasLedger reports whether the loader recorded any entries.
	HasLedger() bool

	// Ledger returns the loader's ledger for this run.
	Ledger() *ledger.Ledger
}
