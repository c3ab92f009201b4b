// Package metrics defines the bot's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lottobot/internal/logger"
)

const Namespace = "lottobot"

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Generated combinations by strategy and result (ok, relaxed, invalid).",
		},
		[]string{"strategy", "result"},
	)

	SimulationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "simulation_runs_total",
			Help:      "Simulation runs by outcome.",
		},
		[]string{"outcome"},
	)

	SimulationTrials = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "simulation_trials",
			Help:      "Trials consumed per simulation run.",
			Buckets:   []float64{0, 10, 100, 1000, 5000, 10000, 30000, 100000},
		},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_requests_total",
			Help:      "Draw provider requests by status.",
		},
		[]string{"status"},
	)

	ProviderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Draw provider request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	DrawsSyncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "draws_synced_total",
			Help:      "Draws fetched from the provider and stored.",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_cache_lookups_total",
			Help:      "History window cache lookups by result.",
		},
		[]string{"result"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "slack_commands_total",
			Help:      "Slash commands handled, by command and status.",
		},
		[]string{"command", "status"},
	)
)

func RecordGeneration(strategy string, relaxed bool, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "invalid"
	case relaxed:
		result = "relaxed"
	}
	GenerationsTotal.WithLabelValues(strategy, result).Inc()
}

func RecordSimulation(outcome string, trials int) {
	SimulationRunsTotal.WithLabelValues(outcome).Inc()
	SimulationTrials.Observe(float64(trials))
}

func RecordProviderRequest(status string, elapsed time.Duration) {
	ProviderRequestsTotal.WithLabelValues(status).Inc()
	ProviderRequestDuration.Observe(elapsed.Seconds())
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

func RecordCommand(command, status string) {
	CommandsTotal.WithLabelValues(command, status).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info("metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()
}
