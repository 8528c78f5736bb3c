package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Timer creation metrics
	TimerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldboss_timer_requests_total",
			Help: "Timer creation requests by outcome",
		},
		[]string{"resource", "outcome"},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldboss_store_errors_total",
			Help: "Timer store operation failures",
		},
		[]string{"operation"},
	)

	// Change feed metrics
	FeedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldboss_feed_events_total",
			Help: "Change feed events received",
		},
		[]string{"source", "op"},
	)

	FeedDecodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldboss_feed_decode_errors_total",
			Help: "Change feed payloads that could not be decoded",
		},
		[]string{"source"},
	)

	RelayPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldboss_relay_published_total",
			Help: "Change events relayed to the message bus",
		},
	)

	RelayPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldboss_relay_publish_failures_total",
			Help: "Change events that could not be relayed after all retries",
		},
	)

	// Gateway metrics
	GatewayConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldboss_gateway_connections",
			Help: "Open websocket connections",
		},
	)

	GatewayBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldboss_gateway_broadcasts_total",
			Help: "Change events broadcast to websocket viewers",
		},
		[]string{"resource"},
	)

	GatewayDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldboss_gateway_dropped_total",
			Help: "Broadcasts dropped because the broadcast queue was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TimerRequestsTotal,
		StoreErrorsTotal,
		FeedEventsTotal,
		FeedDecodeErrors,
		RelayPublishedTotal,
		RelayPublishFailures,
		GatewayConnections,
		GatewayBroadcastsTotal,
		GatewayDroppedTotal,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
