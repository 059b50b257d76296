package config

import (
	"context"
	"strings"
	"testing"

	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
)

// nullLoader satisfies the loader contract for tag validation tests.
type nullLoader struct{}

func (nullLoader) Name() string                            { return "null" }
func (nullLoader) Kind() string                            { return "null" }
func (nullLoader) Run(context.Context, *model.Batch) error { return nil }
func (nullLoader) Close() error                            { return nil }

func init() {
	loader.Register("test.null", func(model.Step) (loader.Loader, error) {
		return nullLoader{}, nil
	})
}

const validYAML = `
settings:
  batch_size: 100
jobs:
  - name: orgs
    extract:
      - type: extract.inline
        params:
          rows:
            - title: acme
    load:
      - type: test.null
        primary: true
  - name: posts
    depends_on: [orgs]
    principal_entity: post
    transform:
      - type: transform.rename
        params:
          mapping:
            title: post_title
    load:
      - type: test.null
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(cfg.Jobs))
	}
	if cfg.Settings.BatchSize != 100 {
		t.Errorf("batch_size = %d, want 100", cfg.Settings.BatchSize)
	}
	if cfg.Settings.LedgerBucket != "migrate-ledgers" {
		t.Errorf("ledger bucket default = %q", cfg.Settings.LedgerBucket)
	}

	// Declared order is recorded on each job.
	if cfg.Jobs[0].Order != 0 || cfg.Jobs[1].Order != 1 {
		t.Errorf("order not assigned: %d, %d", cfg.Jobs[0].Order, cfg.Jobs[1].Order)
	}

	posts, ok := cfg.Job("posts")
	if !ok {
		t.Fatal("posts job not found")
	}
	if len(posts.DependsOn) != 1 || posts.DependsOn[0] != "orgs" {
		t.Errorf("depends_on = %v", posts.DependsOn)
	}
	if posts.PrincipalEntity != "post" {
		t.Errorf("principal_entity = %q", posts.PrincipalEntity)
	}
	if !cfg.Jobs[0].Load[0].Primary {
		t.Error("primary flag not decoded")
	}
}

func TestParse_UnknownLoaderType(t *testing.T) {
	_, err := Parse([]byte(`
jobs:
  - name: bad
    load:
      - type: loader.nonexistent
`))
	if err == nil {
		t.Fatal("expected an unknown loader type to fail at load time")
	}
	if !strings.Contains(err.Error(), "loader.nonexistent") {
		t.Errorf("error should name the offending tag: %v", err)
	}
}

func TestParse_UnknownProcessorType(t *testing.T) {
	_, err := Parse([]byte(`
jobs:
  - name: bad
    extract:
      - type: extract.nonexistent
`))
	if err == nil {
		t.Fatal("expected an unknown processor type to fail at load time")
	}
}

func TestParse_DuplicateJobName(t *testing.T) {
	_, err := Parse([]byte(`
jobs:
  - name: twice
  - name: twice
`))
	if err == nil {
		t.Fatal("expected duplicate job names to fail")
	}
}

func TestParse_MissingJobName(t *testing.T) {
	_, err := Parse([]byte(`
jobs:
  - depends_on: [x]
`))
	if err == nil {
		t.Fatal("expected a nameless job to fail")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("MIGRATE_LEDGER_BUCKET", "override-bucket")
	t.Setenv("MIGRATE_BATCH_SIZE", "42")

	cfg, err := Parse([]byte("jobs: []"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Settings.LedgerBucket != "override-bucket" {
		t.Errorf("bucket = %q, want override-bucket", cfg.Settings.LedgerBucket)
	}
	if cfg.Settings.BatchSize != 42 {
		t.Errorf("batch size = %d, want 42", cfg.Settings.BatchSize)
	}
}
