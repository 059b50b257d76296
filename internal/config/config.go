// Package config loads the declarative migration configuration: an ordered
// job list plus engine settings. Include-resolution and merging happen
// upstream; this loader expects a flattened file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
	"github.com/nucleus/migrate-core/internal/phase"
)

// Settings holds engine-level configuration.
type Settings struct {
	LedgerBucket string `yaml:"ledger_bucket"`
	LedgerPrefix string `yaml:"ledger_prefix"`
	BatchSize    int    `yaml:"batch_size"`
}

// Config is the loaded migration configuration.
type Config struct {
	Settings Settings     `yaml:"settings"`
	Jobs     []*model.Job `yaml:"jobs"`
}

// Load reads and validates a configuration file. Environment variables
// override unset settings. Unknown loader or processor type tags fail here
// so misconfigured destinations never reach execution.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Settings.LedgerBucket == "" {
		cfg.Settings.LedgerBucket = getEnv("MIGRATE_LEDGER_BUCKET", "migrate-ledgers")
	}
	if cfg.Settings.LedgerPrefix == "" {
		cfg.Settings.LedgerPrefix = getEnv("MIGRATE_LEDGER_PREFIX", "ledgers")
	}
	if cfg.Settings.BatchSize == 0 {
		cfg.Settings.BatchSize = getEnvInt("MIGRATE_BATCH_SIZE", 500)
	}

	seen := map[string]bool{}
	for i, job := range cfg.Jobs {
		if job.Name == "" {
			return nil, fmt.Errorf("job %d: name is required", i)
		}
		if seen[job.Name] {
			return nil, fmt.Errorf("duplicate job name: %s", job.Name)
		}
		seen[job.Name] = true
		job.Order = i
	}

	if err := validateTags(cfg, phase.DefaultRegistry(), loader.DefaultRegistry()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateTags checks every configured step type against the registries.
func validateTags(cfg *Config, phases *phase.Registry, loaders *loader.Registry) error {
	for _, job := range cfg.Jobs {
		for _, p := range []model.PhaseType{model.PhaseExtract, model.PhaseTransform} {
			for _, step := range job.Steps(p) {
				if step.Type == "" {
					return fmt.Errorf("job %s: %s step with empty type", job.Name, p)
				}
				if !phases.Has(step.Type) {
					return fmt.Errorf("job %s: unknown %s processor type %q", job.Name, p, step.Type)
				}
			}
		}
		for _, step := range job.Load {
			if step.Type == "" {
				return fmt.Errorf("job %s: load step with empty type", job.Name)
			}
			if !loaders.Has(step.Type) {
				return fmt.Errorf("job %s: unknown loader type %q", job.Name, step.Type)
			}
		}
	}
	return nil
}

// Job returns the named job definition.
func (c *Config) Job(name string) (*model.Job, bool) {
	for _, job := range c.Jobs {
		if job.Name == name {
			return job, true
		}
	}
	return nil, false
}

// HasJob reports whether a job with the given name is configured.
func (c *Config) HasJob(name string) bool {
	_, ok := c.Job(name)
	return ok
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
