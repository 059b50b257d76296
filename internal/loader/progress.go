package loader

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "migrate_loader_rows_processed_total",
	Help: "Rows handed to each loader, labelled by job and loader",
}, []string{"job", "loader"})

// Reporter receives a rows-processed signal after each loader batch. It is
// a notification for external progress reporting, never a control signal.
type Reporter interface {
	RowsProcessed(loaderName string, rows int)
}

// MetricsReporter reports progress through Prometheus counters and the log.
// One reporter is created per job run; no static state is shared between
// runs.
type MetricsReporter struct {
	job string
}

// NewReporter creates a progress reporter bound to one job run.
func NewReporter(job string) *MetricsReporter {
	return &MetricsReporter{job: job}
}

func (r *MetricsReporter) RowsProcessed(loaderName string, rows int) {
	rowsProcessed.WithLabelValues(r.job, loaderName).Add(float64(rows))
	log.Printf("job=%s loader=%s rows=%d", r.job, loaderName, rows)
}

// NopReporter discards progress signals.
type NopReporter struct{}

func (NopReporter) RowsProcessed(string, int) {}
