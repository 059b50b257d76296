// Package main implements the migration CLI: validate the job graph, then
// run every cleared job in dependency-safe order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nucleus/migrate-core/internal/config"
	"github.com/nucleus/migrate-core/internal/graph"
	"github.com/nucleus/migrate-core/internal/ledger"
	"github.com/nucleus/migrate-core/internal/model"
	"github.com/nucleus/migrate-core/internal/runner"

	// Import loader packages to register factories.
	_ "github.com/nucleus/migrate-core/internal/loader/feed"
	_ "github.com/nucleus/migrate-core/internal/loader/postgres"
)

func main() {
	configPath := flag.String("config", "migrate.yaml", "path to the migration configuration file")
	phaseFlag := flag.String("phase", "", "run a single phase (extract|transform|load) for preview")
	metricsPort := flag.Int("metrics-port", 9090, "Prometheus metrics port (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// The progress counters live in this process, so the scrape endpoint
	// does too.
	if *metricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(fmt.Sprintf(":%d", *metricsPort), mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	result := graph.Validate(cfg.Jobs)
	for _, verr := range result.Errors {
		log.Printf("validation: %v", verr)
	}
	if result.Fatal() {
		log.Fatal("unresolved circular dependency, aborting run")
	}

	store, err := ledger.NewStoreFromEnv()
	if err != nil {
		log.Fatalf("ledger store: %v", err)
	}
	registry := ledger.NewRegistry(store, cfg.HasJob)
	manager := ledger.NewManager(store)

	ctx := context.Background()
	failed := 0
	for _, job := range result.Plan {
		if job.Skip {
			log.Printf("job=%s skipped", job.Name)
			continue
		}
		if err := runJob(ctx, job, cfg, registry, manager, *phaseFlag); err != nil {
			log.Printf("job=%s failed: %v", job.Name, err)
			failed++
		}
	}
	if failed > 0 {
		log.Printf("run finished with %d failed job(s)", failed)
		os.Exit(1)
	}
	log.Printf("run finished: %d job(s)", len(result.Plan))
}

func runJob(ctx context.Context, job *model.Job, cfg *config.Config, registry *ledger.Registry, manager *ledger.Manager, phaseName string) error {
	r := runner.New(job, runner.Options{
		Ledgers:   registry,
		Manager:   manager,
		BatchSize: cfg.Settings.BatchSize,
	})
	if err := r.Build(); err != nil {
		return err
	}
	if phaseName != "" {
		return r.ProcessPhase(ctx, model.PhaseType(phaseName))
	}
	return r.Process(ctx)
}
