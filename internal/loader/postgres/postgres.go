// Package postgres implements a destination loader that inserts rows into
// a PostgreSQL table, records one ledger entry per inserted row, and
// reports the minted destination identifiers as row mutations so loaders
// later in the chain can reference them.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/nucleus/migrate-core/internal/core"
	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/model"
)

// Loader writes batches into one PostgreSQL table.
type Loader struct {
	name string
	cfg  *Config
	db   *sql.DB

	led       *ledger.Ledger
	mutations map[string]model.Row
}

// New creates a postgres table loader from a configured load step.
func New(step model.Step) (*Loader, error) {
	cfg, err := ParseConfig(step.Params)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	name := cfg.Name
	if name == "" {
		name = "postgres." + cfg.Table
	}
	return &Loader{
		name:      name,
		cfg:       cfg,
		db:        db,
		led:       ledger.NewWithSchema(name, ledgerSchema(cfg)),
		mutations: map[string]model.Row{},
	}, nil
}

func (l *Loader) Name() string { return l.name }
func (l *Loader) Kind() string { return l.cfg.Kind }

// Run inserts each batch row. A failed row is logged and skipped so the
// ledger reflects only rows that actually landed; a connection-level
// failure surfaces as a coded error for the chain to classify.
func (l *Loader) Run(ctx context.Context, batch *model.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	columns := l.cfg.Columns
	if len(columns) == 0 {
		columns = dataColumns(batch.Columns)
	}
	query := insertQuery(l.cfg.Table, columns, l.cfg.IDColumn)

	for _, row := range batch.Rows {
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			args = append(args, row[col])
		}

		var destID int64
		err := l.db.QueryRowContext(ctx, query, args...).Scan(&destID)
		if err != nil {
			if coded := classifyDBError(err); coded.RetryableStatus() {
				return coded
			}
			log.Printf("loader=%s uid=%s insert failed, skipping row: %v", l.name, row.UID(), err)
			continue
		}

		l.led.Append(ledger.Entry{
			model.FieldUID: row.UID(),
			l.cfg.IDField:  destID,
			"entity":       l.cfg.Kind,
			"table":        l.cfg.Table,
		})
		l.mutations[row.UID()] = row.With(l.cfg.IDField, destID)
	}
	return nil
}

func (l *Loader) HasMutatedRows() bool { return len(l.mutations) > 0 }

func (l *Loader) CollectMutatedRows() map[string]model.Row {
	out := l.mutations
	l.mutations = map[string]model.Row{}
	return out
}

func (l *Loader) HasLedger() bool { return !l.led.Empty() }

func (l *Loader) Ledger() *ledger.Ledger { return l.led }

// Close releases database resources.
func (l *Loader) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func insertQuery(table string, columns []string, idColumn string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), idColumn)
}

func dataColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if model.IsMeta(col) {
			continue
		}
		out = append(out, col)
	}
	return out
}

func ledgerSchema(cfg *Config) *ledger.Schema {
	return &ledger.Schema{Fields: []ledger.Field{
		{Name: model.FieldUID, DataType: "STRING"},
		{Name: cfg.IDField, DataType: "INTEGER"},
		{Name: "entity", DataType: "STRING"},
		{Name: "table", DataType: "STRING"},
	}}
}

// classifyDBError maps driver failures onto the coded taxonomy. Transient
// connectivity problems are retryable for the chain's purposes; everything
// else is an ordinary write failure.
func classifyDBError(err error) *core.Error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "bad connection"):
		return core.WrapError(core.CodeDestinationUnavailable, true, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return core.WrapError(core.CodeTimeout, true, err)
	}
	return core.WrapError(core.CodeLoadWriteFailed, false, err)
}
