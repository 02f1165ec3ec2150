package convert

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	latency     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brunosync_conversions_total",
			Help: "Conversions answered, labeled by kind, op and outcome",
		}, []string{"kind", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brunosync_conversion_duration_seconds",
			Help:    "Histogram of time spent inside the codec per conversion",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind", "op"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "brunosync_conversion_latency_seconds",
			Help: "Histogram of time from submission to reply",
		}),
	}

	for c := range slices.Values([]prometheus.Collector{m.conversions, m.duration, m.latency}) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(req Request, reply Reply, elapsed, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if reply.Failed() {
		outcome = string(reply.ErrorType)
	}
	m.conversions.WithLabelValues(string(req.Kind), string(req.Op), outcome).Inc()
	m.duration.WithLabelValues(string(req.Kind), string(req.Op)).Observe(elapsed.Seconds())
	m.latency.Observe(latency.Seconds())
}
