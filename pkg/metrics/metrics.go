package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "syncify", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "syncify", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	CredentialRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "syncify", Name: "credential_refreshes_total", Help: "Number of remote credential refresh attempts by result."},
		[]string{"result"},
	)
	EventsRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "syncify", Name: "events_relayed_total", Help: "Number of realtime events handed to member connections."},
	)
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "syncify", Name: "events_dropped_total", Help: "Number of realtime events dropped due to member backpressure."},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "syncify", Name: "ws_connections", Help: "Currently open websocket connections."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(CredentialRefreshes)
	reg.MustRegister(EventsRelayed)
	reg.MustRegister(EventsDropped)
	reg.MustRegister(WSConnections)
}
