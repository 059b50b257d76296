package postgres

import (
	"errors"
	"testing"

	"github.com/nucleus/migrate-core/internal/core"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(map[string]any{
		"connection_string": "postgres://localhost/migrate",
		"table":             "posts",
	})
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Kind != "posts" {
		t.Errorf("kind defaults to the table name, got %q", cfg.Kind)
	}
	if cfg.IDColumn != "id" {
		t.Errorf("id_column default = %q", cfg.IDColumn)
	}
	if cfg.IDField != "_posts_id" {
		t.Errorf("id_field default = %q", cfg.IDField)
	}
}

func TestParseConfig_Required(t *testing.T) {
	if _, err := ParseConfig(map[string]any{"table": "posts"}); err == nil {
		t.Error("missing connection string must fail")
	}
	if _, err := ParseConfig(map[string]any{"connection_string": "x"}); err == nil {
		t.Error("missing table must fail")
	}
}

func TestInsertQuery(t *testing.T) {
	got := insertQuery("posts", []string{"title", "body"}, "id")
	want := "INSERT INTO posts (title, body) VALUES ($1, $2) RETURNING id"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDataColumns_SkipsMeta(t *testing.T) {
	got := dataColumns([]string{"title", "_uid", "body", "_posts_id"})
	if len(got) != 2 || got[0] != "title" || got[1] != "body" {
		t.Errorf("got %v, want data columns only", got)
	}
}

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		msg       string
		code      string
		retryable bool
	}{
		{"dial tcp: connection refused", core.CodeDestinationUnavailable, true},
		{"driver: bad connection", core.CodeDestinationUnavailable, true},
		{"context deadline exceeded", core.CodeTimeout, true},
		{"pq: duplicate key value violates unique constraint", core.CodeLoadWriteFailed, false},
	}
	for _, tc := range tests {
		coded := classifyDBError(errors.New(tc.msg))
		if coded.CodeValue() != tc.code || coded.RetryableStatus() != tc.retryable {
			t.Errorf("%q classified as %s/retryable=%v, want %s/%v",
				tc.msg, coded.CodeValue(), coded.RetryableStatus(), tc.code, tc.retryable)
		}
	}
}
