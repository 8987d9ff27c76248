package event_relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboxPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payment_gateway",
		Name:      "outbox_published_total",
		Help:      "Total number of outbox messages published to the payment event stream.",
	})

	outboxPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payment_gateway",
		Name:      "outbox_publish_failures_total",
		Help:      "Total number of failed outbox publish attempts.",
	})

	outboxDeadLetteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payment_gateway",
		Name:      "outbox_dead_lettered_total",
		Help:      "Total number of outbox messages shipped to the dead letter topic after exhausting retries.",
	})
)
