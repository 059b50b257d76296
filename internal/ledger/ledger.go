// Package ledger records, persists, and joins per-loader side-effect records
// into a single cross-referenced audit trail for each job run.
//
// Architecture:
//
//	Entry    - One side-effect record, keyed by the row unique identifier
//	Ledger   - Append-only entry sequence for one loader within one job run
//	Manager  - Selects the primary ledger, joins secondaries, persists results
//	Registry - Caches other jobs' persisted ledgers for dependent jobs
//	Store    - JSONL (canonical) + optional Parquet persistence
package ledger

import (
	"errors"

	"github.com/nucleus/migrate-core/internal/model"
)

// ErrNotFound signals that a job has no persisted ledger. Callers treat this
// as "dependency has no prior output", not as a failure.
var ErrNotFound = errors.New("ledger not found")

// Entry is a flat side-effect record. It always carries the unique
// identifier of the row that produced it under model.FieldUID.
type Entry map[string]any

// UID returns the row unique identifier the entry belongs to.
func (e Entry) UID() string {
	if v, ok := e[model.FieldUID]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of the entry.
func (e Entry) Clone() Entry {
	out := make(Entry, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Field declares one typed ledger column for Parquet persistence.
type Field struct {
	Name     string
	DataType string // "STRING", "INTEGER", "DOUBLE", "BOOLEAN"
}

// Schema optionally declares the entry layout of a ledger.
type Schema struct {
	Fields []Field
}

// Ledger is an ordered, append-only sequence of entries produced by one
// loader within one job run. Created empty when the loader run begins,
// persisted and discarded at job end.
type Ledger struct {
	Name    string
	Schema  *Schema
	Entries []Entry
}

// New creates an empty ledger for the named loader.
func New(name string) *Ledger {
	return &Ledger{Name: name}
}

// NewWithSchema creates an empty ledger with a declared schema.
func NewWithSchema(name string, schema *Schema) *Ledger {
	return &Ledger{Name: name, Schema: schema}
}

// Append adds one entry.
func (l *Ledger) Append(entry Entry) {
	l.Entries = append(l.Entries, entry)
}

// Len returns the entry count.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Empty reports whether the ledger has no entries.
func (l *Ledger) Empty() bool { return l.Len() == 0 }

// Find returns the first entry with the given row unique identifier.
func (l *Ledger) Find(uid string) (Entry, bool) {
	for _, e := range l.Entries {
		if e.UID() == uid {
			return e, true
		}
	}
	return nil, false
}
