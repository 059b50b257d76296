package phase

import (
	"context"
	"testing"

	"github.com/nucleus/migrate-core/internal/model"
)

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create(model.Step{Type: "extract.nope"}); err == nil {
		t.Fatal("expected an error for an unregistered type tag")
	}
}

func TestRegistry_DuplicateRegisterPanics(t *testing.T) {
	r := NewRegistry()
	factory := func(model.Step) (Processor, error) { return nil, nil }
	r.Register("x", factory)

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration must panic")
		}
	}()
	r.Register("x", factory)
}

func TestInlineExtractor(t *testing.T) {
	step := model.Step{
		Type: "extract.inline",
		Params: map[string]any{
			"columns": []any{"title", "body"},
			"rows": []any{
				map[string]any{"title": "first", "body": "a"},
				map[string]any{"title": "second", "body": "b"},
			},
		},
	}
	proc, err := DefaultRegistry().Create(step)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	out, err := proc.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("got %d rows, want 2", out.Len())
	}
	if out.Rows[0]["title"] != "first" {
		t.Errorf("row 0 title = %v", out.Rows[0]["title"])
	}
	if out.Rows[0].UID() == "" {
		t.Error("extracted rows must carry unique identifiers")
	}
}

func TestInlineExtractor_RowsRequired(t *testing.T) {
	_, err := DefaultRegistry().Create(model.Step{Type: "extract.inline", Params: map[string]any{}})
	if err == nil {
		t.Fatal("expected an error when rows are missing")
	}
}

func TestRenameTransform(t *testing.T) {
	proc, err := DefaultRegistry().Create(model.Step{
		Type:   "transform.rename",
		Params: map[string]any{"mapping": map[string]any{"title": "post_title"}},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	state := model.NewTable("title", "body")
	state.Append(model.Row{"title": "hello", "body": "x"})

	out, err := proc.Process(context.Background(), state)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Columns[0] != "post_title" {
		t.Errorf("column not renamed, got %v", out.Columns)
	}
	if out.Rows[0]["post_title"] != "hello" {
		t.Errorf("field not renamed, got %v", out.Rows[0])
	}
	if _, stale := out.Rows[0]["title"]; stale {
		t.Error("old field name must not survive the rename")
	}
	if out.Rows[0].UID() == "" {
		t.Error("rename must keep the unique identifier")
	}
}

func TestPipeline_ThreadsState(t *testing.T) {
	extract, _ := DefaultRegistry().Create(model.Step{
		Type: "extract.inline",
		Params: map[string]any{
			"columns": []any{"title"},
			"rows":    []any{map[string]any{"title": "x"}},
		},
	})
	rename, _ := DefaultRegistry().Create(model.Step{
		Type:   "transform.rename",
		Params: map[string]any{"mapping": map[string]any{"title": "headline"}},
	})

	out, err := Pipeline{extract, rename}.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Rows[0]["headline"] != "x" {
		t.Errorf("pipeline did not thread state, got %v", out.Rows[0])
	}
}

func TestBuild_FailsOnUnknownStep(t *testing.T) {
	_, err := Build(DefaultRegistry(), []model.Step{{Type: "transform.bogus"}})
	if err == nil {
		t.Fatal("expected Build to reject an unknown step type")
	}
}
