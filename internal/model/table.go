package model

// Table is the tabular state threaded through the extract, transform and
// load phases: an ordered column list plus an ordered row slice.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates a table with the given columns and no rows.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds a row, assigning a unique identifier when missing.
func (t *Table) Append(row Row) {
	EnsureUID(row)
	t.Rows = append(t.Rows, row)
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone returns a copy of the table with cloned rows.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// ApplyMutations substitutes replacement rows by unique identifier,
// preserving row order. Rows without a replacement flow through unchanged.
// The receiver is not modified.
func (t *Table) ApplyMutations(mutations map[string]Row) *Table {
	if t == nil || len(mutations) == 0 {
		return t
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		if repl, ok := mutations[row.UID()]; ok {
			out.Rows[i] = repl.Clone()
			continue
		}
		out.Rows[i] = row
	}
	return out
}

// Batches splits the table into chunks of at most size rows. A size of zero
// or less yields a single batch covering the whole table.
func (t *Table) Batches(size int) []*Batch {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(t.Rows)
	}
	var out []*Batch
	for start := 0; start < len(t.Rows); start += size {
		end := start + size
		if end > len(t.Rows) {
			end = len(t.Rows)
		}
		out = append(out, &Batch{Columns: t.Columns, Rows: t.Rows[start:end]})
	}
	return out
}

// Batch is a finite, ordered collection of rows processed together by one
// loader invocation. Columns mirror the owning table's column order.
type Batch struct {
	Columns []string
	Rows    []Row
}

// Len returns the row count.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// ApplyMutations substitutes replacement rows by unique identifier without
// modifying the receiver.
func (b *Batch) ApplyMutations(mutations map[string]Row) *Batch {
	if b == nil || len(mutations) == 0 {
		return b
	}
	out := &Batch{Columns: b.Columns}
	out.Rows = make([]Row, len(b.Rows))
	for i, row := range b.Rows {
		if repl, ok := mutations[row.UID()]; ok {
			out.Rows[i] = repl.Clone()
			continue
		}
		out.Rows[i] = row
	}
	return out
}

// Table returns the batch as a standalone table.
func (b *Batch) Table() *Table {
	if b == nil {
		return nil
	}
	return &Table{Columns: b.Columns, Rows: b.Rows}
}
