package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "cycles_total",
		Help:      "Total poll cycles by outcome (ok, error, shutdown).",
	}, []string{"outcome"})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bridge",
		Name:      "cycle_duration_seconds",
		Help:      "Poll cycle duration in seconds, from listing to remote reply.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	})

	StepErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "step_errors_total",
		Help:      "Cycle failures by step (list, push).",
	}, []string{"step"})

	Torrents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Name:      "torrents",
		Help:      "Number of torrents seen in the last successful listing.",
	})

	LastSuccessTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bridge",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last cycle that reached the remote store.",
	})

	RecorderErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "recorder_errors_total",
		Help:      "Failed cycle recordings by recorder (mongo, redis).",
	}, []string{"recorder"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Name:      "http_requests_total",
		Help:      "Total status server requests by method, path and status code.",
	}, []string{"method", "path", "status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		CyclesTotal,
		CycleDuration,
		StepErrorsTotal,
		Torrents,
		LastSuccessTimestamp,
		RecorderErrorsTotal,
		HTTPRequestsTotal,
	)
}
