package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "consumer",
		Name:      "events_processed_total",
		Help:      "Number of step events successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastEventGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "step_service",
		Subsystem: "consumer",
		Name:      "last_event_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed event per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastEventGauge)
}

func recordProcessed(event Event) {
	processedCounter.WithLabelValues(event.Topic, event.Type).Inc()
	if !event.Timestamp.IsZero() {
		lastEventGauge.WithLabelValues(event.Topic).Set(float64(event.Timestamp.Unix()))
	}
}

func recordHandlerError(event Event) {
	handlerErrorCounter.WithLabelValues(event.Topic, event.Type).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
