package ledger

import (
	"context"
	"log"

	"github.com/nucleus/migrate-core/internal/model"
)

// Source is one loader's contribution to a job's ledgers: the ledger it
// produced plus the metadata needed to pick the join anchor.
type Source struct {
	Name    string
	Kind    string
	Primary bool
	Ledger  *Ledger
}

// Manager collects loader ledgers at the end of a job's load phase, selects
// a primary, left-joins the secondaries onto it by row unique identifier,
// and persists both per-loader ledgers and the unified ledger.
type Manager struct {
	store *Store
}

// NewManager creates a ledger manager over the given store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// Finalize persists the job's ledgers and returns the unified ledger.
//
// Zero non-empty ledgers yields no unified ledger and no error. A single
// ledger is persisted as the job's sole ledger file under the job name.
// With several, each is persisted under its loader name and the join result
// is persisted under the job name.
func (m *Manager) Finalize(ctx context.Context, job *model.Job, sources []Source) (*Ledger, error) {
	var active []Source
	for _, src := range sources {
		if src.Ledger != nil && !src.Ledger.Empty() {
			active = append(active, src)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}

	if len(active) == 1 {
		sole := &Ledger{Name: job.Name, Schema: active[0].Ledger.Schema, Entries: active[0].Ledger.Entries}
		if _, err := m.store.Persist(ctx, job.Name, sole); err != nil {
			return nil, err
		}
		return sole, nil
	}

	for _, src := range active {
		if _, err := m.store.Persist(ctx, job.Name, src.Ledger); err != nil {
			return nil, err
		}
	}

	primary := selectPrimary(job, active)
	unified := join(job.Name, primary, active)
	if _, err := m.store.Persist(ctx, job.Name, unified); err != nil {
		return nil, err
	}
	log.Printf("job=%s unified ledger: %d entries from %d loaders (primary=%s)",
		job.Name, unified.Len(), len(active), primary.Name)
	return unified, nil
}

// selectPrimary picks the join anchor: an explicitly flagged loader wins,
// else the loader whose kind matches the job's principal entity, else the
// first loader in declared order.
func selectPrimary(job *model.Job, sources []Source) Source {
	for _, src := range sources {
		if src.Primary {
			return src
		}
	}
	if job.PrincipalEntity != "" {
		for _, src := range sources {
			if src.Kind == job.PrincipalEntity {
				return src
			}
		}
	}
	return sources[0]
}

// join left-joins every secondary ledger onto the primary by row unique
// identifier. Every primary entry appears exactly once; secondary entries
// with no matching identifier contribute nothing. Colliding secondary field
// names are prefixed with the loader name.
func join(jobName string, primary Source, sources []Source) *Ledger {
	unified := New(jobName)
	for _, entry := range primary.Ledger.Entries {
		merged := entry.Clone()
		uid := entry.UID()
		for _, src := range sources {
			if src.Name == primary.Name {
				continue
			}
			match, ok := src.Ledger.Find(uid)
			if !ok {
				continue
			}
			for k, v := range match {
				if k == model.FieldUID {
					continue
				}
				if _, exists := merged[k]; exists {
					merged[src.Name+"_"+k] = v
					continue
				}
				merged[k] = v
			}
		}
		unified.Append(merged)
	}
	return unified
}
