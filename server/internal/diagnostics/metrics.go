package diagnostics

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
)

// Record kinds, used as metric labels and journal entry kinds.
const (
	KindOperation    = "operation"
	KindWatcherEvent = "watcher_event"
	KindParsingError = "parsing_error"
)

// Metrics exposes what flows through a Store. A nil *Metrics records nothing.
type Metrics struct {
	records  *prometheus.CounterVec
	evicted  *prometheus.CounterVec
	watchers *prometheus.GaugeVec
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brunosync_diagnostics_records_total",
			Help: "Diagnostic records appended, labeled by kind and type",
		}, []string{"kind", "type"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brunosync_diagnostics_evicted_total",
			Help: "Diagnostic records dropped from the front of a full buffer, labeled by kind",
		}, []string{"kind"}),
		watchers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brunosync_watchers",
			Help: "Collection watchers currently registered, labeled by status",
		}, []string{"status"}),
	}

	for c := range slices.Values([]prometheus.Collector{m.records, m.evicted, m.watchers}) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) appended(kind, typ string, evicted bool) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind, typ).Inc()
	if evicted {
		m.evicted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) setWatchers(watchers map[string]*WatcherInfo) {
	if m == nil {
		return
	}
	counts := map[WatcherStatus]float64{WatcherActive: 0, WatcherError: 0}
	for _, w := range watchers {
		counts[w.Status]++
	}
	for status, n := range counts {
		m.watchers.WithLabelValues(string(status)).Set(n)
	}
}
