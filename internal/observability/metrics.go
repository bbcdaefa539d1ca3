package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the feed client.
type Metrics struct {
	BulletinsReceived prometheus.Counter
	ParseErrors       *prometheus.CounterVec // labels: kind={malformed,unexpected}
	DelaySeconds      prometheus.Histogram

	// Distribution metrics.
	QueueDropped prometheus.Counter
	QueueDepth   prometheus.Gauge
	Subscribers  prometheus.Gauge
	FanoutPanics prometheus.Counter

	// Connection metrics.
	Connected  prometheus.Gauge
	Reconnects prometheus.Counter

	// Kafka relay metrics.
	RelayPublished prometheus.Counter
	RelayErrors    prometheus.Counter
}

// NewMetrics creates and registers all feed metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.BulletinsReceived,
		m.ParseErrors,
		m.DelaySeconds,
		m.QueueDropped,
		m.QueueDepth,
		m.Subscribers,
		m.FanoutPanics,
		m.Connected,
		m.Reconnects,
		m.RelayPublished,
		m.RelayErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		BulletinsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "bulletins_received_total",
			Help:      "Total bulletins successfully ingested from the feed.",
		}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "parse_errors_total",
			Help:      "Messages dropped due to parse failures, by kind.",
		}, []string{"kind"}),
		DelaySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wxwire",
			Name:      "bulletin_delay_seconds",
			Help:      "Seconds between product issue time and ingestion.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900, 3600},
		}),
		QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "queue_dropped_total",
			Help:      "Bulletins dropped because the pull queue was full.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxwire",
			Name:      "queue_depth",
			Help:      "Current number of bulletins waiting on the pull queue.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxwire",
			Name:      "subscribers",
			Help:      "Current number of registered push subscribers.",
		}),
		FanoutPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "fanout_panics_total",
			Help:      "Subscriber callbacks that panicked during fan-out.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxwire",
			Name:      "connected",
			Help:      "1 when the session is established, 0 otherwise.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "reconnects_total",
			Help:      "Forced reconnects triggered by the staleness monitor.",
		}),
		RelayPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "relay_published_total",
			Help:      "Bulletins republished to the Kafka sink topic.",
		}),
		RelayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wxwire",
			Name:      "relay_errors_total",
			Help:      "Kafka relay publish failures.",
		}),
	}
}
