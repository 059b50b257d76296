package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nucleus/migrate-core/internal/core"
	"github.com/nucleus/migrate-core/internal/model"
)

func feedBatch(uids ...string) *model.Batch {
	rows := make([]model.Row, 0, len(uids))
	for _, uid := range uids {
		rows = append(rows, model.Row{model.FieldUID: uid, "title": "t", "_internal": "hidden"})
	}
	return &model.Batch{Columns: []string{"title"}, Rows: rows}
}

func newLoader(t *testing.T, url string) *Loader {
	t.Helper()
	l, err := New(model.Step{Params: map[string]any{"url": url, "kind": "post"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l
}

func TestRun_RecordsLedger(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42})
	}))
	defer srv.Close()

	l := newLoader(t, srv.URL)
	defer l.Close()

	if err := l.Run(context.Background(), feedBatch("u1", "u2")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !l.HasLedger() || l.Ledger().Len() != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", l.Ledger().Len())
	}
	entry := l.Ledger().Entries[0]
	if entry.UID() != "u1" || entry["remote_id"] != "42" {
		t.Errorf("unexpected ledger entry: %v", entry)
	}

	// Meta fields other than the uid are stripped from the payload.
	if _, leaked := bodies[0]["_internal"]; leaked {
		t.Error("meta fields must not be posted")
	}
	if bodies[0][model.FieldUID] == nil {
		t.Error("the row uid is part of the payload")
	}
}

func TestRun_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := newLoader(t, srv.URL)
	defer l.Close()

	err := l.Run(context.Background(), feedBatch("u1"))
	if err == nil {
		t.Fatal("a 5xx must abort the batch with a retryable error")
	}
	var coded core.CodedError
	if !errors.As(err, &coded) || !coded.RetryableStatus() {
		t.Errorf("expected a retryable coded error, got %v", err)
	}
}

func TestRun_ClientErrorSkipsRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	l := newLoader(t, srv.URL)
	defer l.Close()

	if err := l.Run(context.Background(), feedBatch("u1")); err != nil {
		t.Fatalf("a 4xx is a per-row failure, not a batch failure: %v", err)
	}
	if l.HasLedger() {
		t.Error("rejected rows must not appear in the ledger")
	}
}

func TestParseConfig_URLRequired(t *testing.T) {
	if _, err := ParseConfig(map[string]any{"kind": "post"}); err == nil {
		t.Fatal("missing url must fail")
	}
}
