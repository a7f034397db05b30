package groups

import "github.com/prometheus/client_golang/prometheus"

var (
	transactionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "groups",
		Name:      "transactions_total",
		Help:      "Membership transactions by operation and outcome.",
	}, []string{"operation", "outcome"})

	codeCollisionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "step_service",
		Subsystem: "groups",
		Name:      "invite_code_collisions_total",
		Help:      "Number of invite-code candidates discarded as taken.",
	})
)

func init() {
	prometheus.MustRegister(transactionCounter, codeCollisionCounter)
}

func recordTransaction(operation, outcome string) {
	transactionCounter.WithLabelValues(operation, outcome).Inc()
}
