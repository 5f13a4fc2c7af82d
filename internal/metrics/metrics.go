// Package metrics exposes Prometheus counters for rounds, deck API calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blackjack"

// Recorder owns a private registry so tests and multiple servers do not collide
// on the global one. All methods are safe on a nil Recorder.
type Recorder struct {
	registry     *prometheus.Registry
	rounds       *prometheus.CounterVec
	deckCalls    *prometheus.CounterVec
	deckErrors   *prometheus.CounterVec
	deckLatency  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Resolved rounds by outcome.",
		}, []string{"outcome"}),
		deckCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deck_api_calls_total",
			Help:      "Calls made to the deck API by operation.",
		}, []string{"op"}),
		deckErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deck_api_errors_total",
			Help:      "Failed deck API calls by operation.",
		}, []string{"op"}),
		deckLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deck_api_duration_seconds",
			Help:      "Deck API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	r.registry.MustRegister(
		r.rounds, r.deckCalls, r.deckErrors, r.deckLatency, r.httpRequests, r.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRound counts one resolved round.
func (r *Recorder) RecordRound(outcome string) {
	if r == nil {
		return
	}
	r.rounds.WithLabelValues(outcome).Inc()
}

// RecordDeckAttempt counts one deck API call and its latency.
func (r *Recorder) RecordDeckAttempt(op string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.deckCalls.WithLabelValues(op).Inc()
	r.deckLatency.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		r.deckErrors.WithLabelValues(op).Inc()
	}
}

// RecordHTTPRequest counts one served request.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}
