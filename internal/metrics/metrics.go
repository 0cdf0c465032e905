// Package metrics exposes Prometheus counters for the poll pipeline.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "power_alert"

// Poll outcomes.
const (
	PollOK          = "ok"
	PollNoPosts     = "no_posts"
	PollRateLimited = "rate_limited"
	PollServerError = "server_error"
	PollError       = "error"
)

// Metrics holds the application counters. All methods are safe on a nil receiver.
type Metrics struct {
	registry      *prometheus.Registry
	polls         *prometheus.CounterVec
	postsMatched  prometheus.Counter
	notifications *prometheus.CounterVec
	ocrFailures   prometheus.Counter
	lastPoll      prometheus.Gauge
}

// New creates Metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Feed polls by outcome.",
		}, []string{"outcome"}),
		postsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_matched_total",
			Help:      "Posts that mentioned at least one configured name.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by result.",
		}, []string{"result"}),
		ocrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_failures_total",
			Help:      "Images that produced no text because fetch, decode or OCR failed.",
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last completed poll.",
		}),
	}
	m.registry.MustRegister(
		m.polls, m.postsMatched, m.notifications, m.ocrFailures, m.lastPoll,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// PollDone records a finished poll.
func (m *Metrics) PollDone(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
	m.lastPoll.SetToCurrentTime()
}

// PostMatched records a post that matched.
func (m *Metrics) PostMatched() {
	if m == nil {
		return
	}
	m.postsMatched.Inc()
}

// NotificationSent records a delivery attempt.
func (m *Metrics) NotificationSent(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// OCRFailed records an image that yielded no text.
func (m *Metrics) OCRFailed() {
	if m == nil {
		return
	}
	m.ocrFailures.Inc()
}

// Handler returns the scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", "addr", addr, "error", err)
	}
}
