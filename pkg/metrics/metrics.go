package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "portfolio_monitor"

var (
	ConnectorState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "live",
		Help:      "1 when the account connector is in LIVE state.",
	}, []string{"account"})

	ConnectorReconnects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts per account.",
	}, []string{"account"})

	ConnectorDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "dropped_messages_total",
		Help:      "Malformed upstream messages dropped per account.",
	}, []string{"account"})

	CacheUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "updates_total",
		Help:      "Applied cache mutations by kind.",
	}, []string{"account", "kind"})

	HubObservers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "hub",
		Name:      "observers",
		Help:      "Currently registered observers.",
	})

	HubMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "hub",
		Name:      "messages_total",
		Help:      "Messages published by type.",
	}, []string{"type"})

	HubEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "hub",
		Name:      "evictions_total",
		Help:      "Observers removed after a failed send.",
	})

	SnapshotsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "written_total",
		Help:      "Snapshot records upserted.",
	})

	SnapshotFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "failures_total",
		Help:      "Snapshot failures by stage.",
	}, []string{"stage"})

	SnapshotsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "snapshot",
		Name:      "deleted_total",
		Help:      "Snapshot records removed by retention.",
	})
)

// Registry: отдельный реестр, чтобы тесты и повторная инициализация не ловили duplicate registration.
func NewRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		ConnectorState,
		ConnectorReconnects,
		ConnectorDropped,
		CacheUpdates,
		HubObservers,
		HubMessages,
		HubEvictions,
		SnapshotsWritten,
		SnapshotFailures,
		SnapshotsDeleted,
		collectors.NewGoCollector(),
	)
	return r
}
