package runner

import (
	"context"
	"testing"

	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
	"github.com/nucleus/migrate-core/internal/objstore"
)

// memSink collects everything it is asked to write and records a ledger
// entry per row.
type memSink struct {
	kind string
	rows []model.Row
	led  *ledger.Ledger
}

func (s *memSink) Name() string { return "memsink" }
func (s *memSink) Kind() string { return s.kind }
func (s *memSink) Close() error { return nil }

func (s *memSink) Run(ctx context.Context, batch *model.Batch) error {
	for _, row := range batch.Rows {
		s.rows = append(s.rows, row)
		s.led.Append(ledger.Entry{model.FieldUID: row.UID(), "entity": s.kind})
	}
	return nil
}

func (s *memSink) HasLedger() bool        { return !s.led.Empty() }
func (s *memSink) Ledger() *ledger.Ledger { return s.led }

// sinkRegistry builds a loader registry with a memsink factory and returns
// the last created sink for inspection.
func sinkRegistry() (*loader.Registry, *memSink) {
	sink := &memSink{kind: "post", led: ledger.New("memsink")}
	reg := loader.NewRegistry()
	reg.Register("test.memsink", func(model.Step) (loader.Loader, error) {
		return sink, nil
	})
	return reg, sink
}

func inlineJob() *model.Job {
	return &model.Job{
		Name:            "posts",
		PrincipalEntity: "post",
		Extract: []model.Step{{
			Type: "extract.inline",
			Params: map[string]any{
				"columns": []any{"title"},
				"rows": []any{
					map[string]any{"title": "first"},
					map[string]any{"title": "second"},
				},
			},
		}},
		Transform: []model.Step{{
			Type:   "transform.rename",
			Params: map[string]any{"mapping": map[string]any{"title": "post_title"}},
		}},
		Load: []model.Step{{Type: "test.memsink", Primary: true}},
	}
}

func TestRunner_FullPipeline(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewStore(objstore.NewLocalStore(t.TempDir()), "test-ledgers", "ledgers")
	loaders, sink := sinkRegistry()

	r := New(inlineJob(), Options{
		Loaders:   loaders,
		Manager:   ledger.NewManager(store),
		Reporter:  loader.NopReporter{},
		BatchSize: 1,
	})
	if err := r.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if r.Status() != StatusBuilt {
		t.Fatalf("status = %s, want %s", r.Status(), StatusBuilt)
	}

	if err := r.Process(ctx); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if r.Status() != StatusDone {
		t.Errorf("status = %s, want %s", r.Status(), StatusDone)
	}

	// The sink saw the transformed rows.
	if len(sink.rows) != 2 {
		t.Fatalf("sink saw %d rows, want 2", len(sink.rows))
	}
	if sink.rows[0]["post_title"] != "first" {
		t.Errorf("sink row = %v, want renamed field", sink.rows[0])
	}

	// The ledger was finalized under the job name.
	persisted, err := store.Latest(ctx, "posts", "posts")
	if err != nil {
		t.Fatalf("persisted ledger not found: %v", err)
	}
	if persisted.Len() != 2 {
		t.Errorf("persisted ledger has %d entries, want 2", persisted.Len())
	}
}

func TestRunner_NotBuilt(t *testing.T) {
	r := New(inlineJob(), Options{})
	if err := r.ProcessPhase(context.Background(), model.PhaseExtract); err == nil {
		t.Fatal("running an unbuilt runner must fail")
	}
}

func TestRunner_UnknownLoaderFailsBuild(t *testing.T) {
	job := inlineJob()
	job.Load = []model.Step{{Type: "test.unregistered"}}

	r := New(job, Options{Loaders: loader.NewRegistry()})
	if err := r.Build(); err == nil {
		t.Fatal("Build must reject an unknown loader type")
	}
}

func TestRunner_SinglePhasePreview(t *testing.T) {
	loaders, _ := sinkRegistry()
	r := New(inlineJob(), Options{Loaders: loaders, Reporter: loader.NopReporter{}})
	if err := r.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	seed := model.NewTable("title")
	seed.Append(model.Row{"title": "seeded"})
	r.SetState(seed)

	if err := r.ProcessPhase(context.Background(), model.PhaseTransform); err != nil {
		t.Fatalf("ProcessPhase failed: %v", err)
	}
	if got := r.State().Rows[0]["post_title"]; got != "seeded" {
		t.Errorf("transform preview produced %v, want seeded", got)
	}
	if r.Status() == StatusDone {
		t.Error("a transform-only run must not report completion")
	}
}

func TestRunner_MissingDependencyLedgerContinues(t *testing.T) {
	store := ledger.NewStore(objstore.NewLocalStore(t.TempDir()), "test-ledgers", "ledgers")
	registry := ledger.NewRegistry(store, func(string) bool { return true })

	job := inlineJob()
	job.DependsOn = []string{"orgs"}

	loaders, _ := sinkRegistry()
	r := New(job, Options{
		Loaders:  loaders,
		Ledgers:  registry,
		Manager:  ledger.NewManager(store),
		Reporter: loader.NopReporter{},
	})
	if err := r.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := r.Process(context.Background()); err != nil {
		t.Fatalf("a dependency without a ledger must not fail the run: %v", err)
	}
	if r.Status() != StatusDone {
		t.Errorf("status = %s, want %s", r.Status(), StatusDone)
	}
}
