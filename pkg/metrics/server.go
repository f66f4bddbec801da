package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/logger"
)

// MetricsServer provides HTTP endpoints for metrics and training curves
type MetricsServer struct {
	server  *http.Server
	metrics *InMemoryMetrics
	config  *config.MetricsConfig
}

// NewMetricsServer creates a new metrics HTTP server. Prometheus series are
// gathered from gatherer; history may be nil to disable the chart route.
func NewMetricsServer(cfg *config.MetricsConfig, metrics *InMemoryMetrics, gatherer prometheus.Gatherer, history HistorySource) *MetricsServer {
	mux := http.NewServeMux()

	ms := &MetricsServer{
		metrics: metrics,
		config:  cfg,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	mux.Handle(cfg.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", ms.handleStats)
	mux.HandleFunc("/health", ms.handleHealth)
	if history != nil {
		mux.HandleFunc("GET /agents/{id}/chart", ChartHandler(history))
	}

	return ms
}

// Handler returns the routing handler, mainly for tests
func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start starts the metrics HTTP server
func (ms *MetricsServer) Start() error {
	if !ms.config.Enabled {
		logger.GetLogger().Info("Metrics server disabled")
		return nil
	}

	logger.GetLogger().Infof("Starting metrics server on port %d", ms.config.Port)

	go func() {
		if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Errorf("Metrics server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server
func (ms *MetricsServer) Stop(ctx context.Context) error {
	if !ms.config.Enabled {
		return nil
	}

	logger.GetLogger().Info("Stopping metrics server...")
	return ms.server.Shutdown(ctx)
}

func (ms *MetricsServer) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(ms.metrics.GetStats()); err != nil {
		logger.GetLogger().Errorf("Failed to encode stats: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (ms *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    ms.metrics.Uptime().String(),
	}

	json.NewEncoder(w).Encode(health)
}
