// Package metrics holds the Prometheus counters for the Canva integration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HandshakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canva_oauth_handshakes_total",
			Help: "Authorization handshakes by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
	TokenRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canva_token_requests_total",
			Help: "Token endpoint calls by grant and outcome.",
		},
		[]string{"grant", "outcome"},
	)
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canva_gateway_requests_total",
			Help: "Canva API calls made on behalf of a user, by method and status class.",
		},
		[]string{"method", "status"},
	)
	CorrelationVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canva_correlation_verifications_total",
			Help: "Return-navigation JWT verifications by outcome.",
		},
		[]string{"outcome"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funeral_coordinator_http_requests_total",
			Help: "Inbound HTTP requests by route pattern and status code.",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		HandshakesTotal,
		TokenRequestsTotal,
		GatewayRequestsTotal,
		CorrelationVerificationsTotal,
		HTTPRequestsTotal,
	)
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// StatusClass turns 404 into "4xx". Zero means no response was received.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return string(rune('0'+status/100)) + "xx"
}

func Handler() http.Handler {
	return promhttp.Handler()
}
