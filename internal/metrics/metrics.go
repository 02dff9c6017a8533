// Package metrics exposes prometheus collectors for discovery runs and CV generations.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "jobscout"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	discoveryRuns     *prometheus.CounterVec
	discoveryDuration *prometheus.HistogramVec
	postingsFound     *prometheus.CounterVec
	cvGenerations     *prometheus.CounterVec
	cvCacheHits       prometheus.Counter
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		discoveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_runs_total",
			Help:      "Discovery runs by winning strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		discoveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Wall time of discovery runs.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"outcome"}),
		postingsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_found_total",
			Help:      "Postings returned by discovery, by provenance.",
		}, []string{"provenance"}),
		cvGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_generations_total",
			Help:      "CV generation requests by outcome.",
		}, []string{"outcome"}),
		cvCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_cache_hits_total",
			Help:      "CV generations served from cache.",
		}),
	}

	m.registry.MustRegister(
		m.discoveryRuns,
		m.discoveryDuration,
		m.postingsFound,
		m.cvGenerations,
		m.cvCacheHits,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDiscovery records one finished discovery run.
func (m *Metrics) ObserveDiscovery(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.discoveryRuns.WithLabelValues(strategy, outcome).Inc()
	m.discoveryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddPostings counts postings of a provenance.
func (m *Metrics) AddPostings(provenance string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.postingsFound.WithLabelValues(provenance).Add(float64(n))
}

// ObserveCV records a CV generation outcome.
func (m *Metrics) ObserveCV(outcome string) {
	if m == nil {
		return
	}
	m.cvGenerations.WithLabelValues(outcome).Inc()
}

// CacheHit counts a cached CV generation.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cvCacheHits.Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if m == nil || addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
