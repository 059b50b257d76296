// Package model defines the core data types that flow through a migration:
// rows, tables, batches, and job definitions.
//
// Architecture:
//
//	Row    - One record; named fields plus a stable unique identifier
//	Table  - Ordered columns + ordered rows; the state threaded through phases
//	Batch  - A Table chunk handed to one loader invocation
//	Job    - One named unit of migration work with phase steps and dependencies
package model

import (
	"strings"

	"github.com/google/uuid"
)

// FieldUID is the reserved field carrying the row's unique identifier.
// Underscore-prefixed keys are meta fields, not destination data.
const FieldUID = "_uid"

// Row is a single data record as key-value pairs. Rows are value-like:
// callers mutate via Clone/With, never in place on a shared instance.
type Row map[string]any

// UID returns the row's unique identifier, or "" when unset.
func (r Row) UID() string {
	if v, ok := r[FieldUID]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy of the row with one field set.
func (r Row) With(key string, value any) Row {
	out := r.Clone()
	out[key] = value
	return out
}

// IsMeta reports whether a field name is a meta field.
func IsMeta(name string) bool {
	return strings.HasPrefix(name, "_")
}

// NewUID mints a new row identifier.
func NewUID() string {
	return "row-" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// EnsureUID returns the row's identifier, assigning a fresh one on the row
// itself when missing. Safe only on rows not yet shared across loaders.
func EnsureUID(r Row) string {
	if id := r.UID(); id != "" {
		return id
	}
	id := NewUID()
	r[FieldUID] = id
	return id
}
