package loader

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsReporter_CountsRows(t *testing.T) {
	r := NewReporter("metrics-job")
	r.RowsProcessed("sink", 3)
	r.RowsProcessed("sink", 2)

	got := testutil.ToFloat64(rowsProcessed.WithLabelValues("metrics-job", "sink"))
	if got != 5 {
		t.Errorf("counter = %v, want 5", got)
	}
}
