package aggregator

import "github.com/prometheus/client_golang/prometheus"

var (
	currentStepsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "current_steps",
		Help:      "Steps counted for the current calendar day.",
	})

	persistCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "persists_total",
		Help:      "Number of durable writes of the daily record.",
	})

	persistErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "persist_errors_total",
		Help:      "Number of failed durable writes.",
	})

	uploadCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "uploads_total",
		Help:      "Number of step uploads issued to the remote store.",
	})

	uploadErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "upload_errors_total",
		Help:      "Number of failed best-effort uploads.",
	})

	rolloverCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "aggregator",
		Name:      "day_rollovers_total",
		Help:      "Number of midnight counter resets.",
	})
)

func init() {
	prometheus.MustRegister(
		currentStepsGauge,
		persistCounter,
		persistErrorCounter,
		uploadCounter,
		uploadErrorCounter,
		rolloverCounter,
	)
}
