package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payment_gateway",
		Name:      "webhook_requests_total",
		Help:      "Webhook callbacks handled, partitioned by gateway, operation and result code.",
	}, []string{"gateway", "operation", "code"})

	webhookRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payment_gateway",
		Name:      "webhook_request_duration_seconds",
		Help:      "Webhook handling latency in seconds, partitioned by gateway and operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway", "operation"})
)

// ObserveWebhook records one handled webhook callback. The code label is the
// gateway-vocabulary result code, not the HTTP status; both gateways answer
// HTTP 200 even for rejections.
func ObserveWebhook(gateway, operation string, code int32, duration time.Duration) {
	webhookRequestsTotal.WithLabelValues(gateway, operation, strconv.FormatInt(int64(code), 10)).Inc()
	webhookRequestDuration.WithLabelValues(gateway, operation).Observe(duration.Seconds())
}
