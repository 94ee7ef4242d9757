package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler's progress counters (spec §4.6: "two
// counters per state (items_done, items_total)").
type Metrics struct {
	ItemsDone  *prometheus.GaugeVec
	ItemsTotal *prometheus.GaugeVec
	State      prometheus.Gauge
	Flushes    *prometheus.CounterVec
	Merges     *prometheus.CounterVec
}

// NewMetrics registers and returns the scheduler's prometheus metrics
// under namespace (defaulting to "tracker_scheduler"), mirroring the
// teacher's promauto.NewGaugeVec/NewCounterVec registration shape
// (`tracing.NewMetrics` in the evalgo-org-eve pack example).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tracker_scheduler"
	}
	return &Metrics{
		ItemsDone: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_done",
			Help:      "Items processed in the current scheduler state.",
		}, []string{"state"}),
		ItemsTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items discovered for the current scheduler state.",
		}, []string{"state"}),
		State: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Current scheduler state as an ordinal.",
		}),
		Flushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_flushes_total",
			Help:      "Word cache flush_all invocations.",
		}, []string{"boundary"}),
		Merges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_merges_total",
			Help:      "merge_indexes invocations.",
		}, []string{"index"}),
	}
}
