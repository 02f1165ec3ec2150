package interceptors

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InterceptWithDefaultMetrics instruments handler with in-flight, count and latency metrics registered on reg.
func InterceptWithDefaultMetrics(reg prometheus.Registerer, handler http.Handler) (http.Handler, error) {
	inFlightGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "brunosync_ipc_in_flight_requests",
		Help: "Current number of in-flight IPC requests",
	})
	requestCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brunosync_ipc_requests_total",
		Help: "Total IPC requests processed, labeled by status code and method",
	}, []string{"code", "method"})
	requestLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "brunosync_ipc_request_duration_seconds",
		Help: "Histogram of IPC request durations in seconds",
	}, []string{"method"})

	for c := range slices.Values([]prometheus.Collector{inFlightGauge, requestCount, requestLatency}) {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register ipc metrics: %w", err)
		}
	}

	return promhttp.InstrumentHandlerInFlight(inFlightGauge,
		promhttp.InstrumentHandlerDuration(requestLatency,
			promhttp.InstrumentHandlerCounter(requestCount, handler),
		),
	), nil
}
