package demuxfs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters an Engine updates as it ingests packets and
// sections. Grounded on the Prometheus client brought in by the pack's
// plexTuner (its go.mod carries client_golang for exactly this kind of
// service instrumentation); this is the one component in the domain stack
// that exercises it.
type Metrics struct {
	parsedSections  prometheus.Counter
	droppedSections prometheus.Counter
	droppedPackets  prometheus.Counter
	tablesInstalled prometheus.Counter
	crcFailures     prometheus.Counter
}

// NewMetrics registers a fresh set of counters against a private registry,
// so independent Engines in the same process (or repeated test setup) never
// collide over a metric name. Use NewMetricsWith(prometheus.DefaultRegisterer)
// to expose an Engine's counters on the process's default /metrics instead.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers counters against reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		parsedSections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "demuxfs",
			Name:      "sections_parsed_total",
			Help:      "Sections successfully parsed and dispatched to a table parser.",
		}),
		droppedSections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "demuxfs",
			Name:      "sections_dropped_total",
			Help:      "Sections discarded due to a CRC mismatch, malformed header, or rejected predicate.",
		}),
		droppedPackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "demuxfs",
			Name:      "packets_dropped_total",
			Help:      "TS packets discarded due to transport_error_indicator or scrambling.",
		}),
		tablesInstalled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "demuxfs",
			Name:      "table_versions_installed_total",
			Help:      "Table versions installed into the dentry tree, across all PIDs.",
		}),
		crcFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "demuxfs",
			Name:      "crc_failures_total",
			Help:      "Sections discarded specifically for a CRC32 mismatch.",
		}),
	}
}
