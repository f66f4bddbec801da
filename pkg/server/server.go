package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	pb "tabular-rl-server/api/proto"
	"tabular-rl-server/internal/service"
	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/logger"
	"tabular-rl-server/pkg/metrics"
)

// Server represents the gRPC server
type Server struct {
	config        *config.Config
	grpcServer    *grpc.Server
	healthServer  *health.Server
	metrics       *metrics.InMemoryMetrics
	agentMetrics  *metrics.AgentMetrics
	metricsServer *metrics.MetricsServer
	agentService  *service.AgentService
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewServer creates a new gRPC server instance
func NewServer(cfg *config.Config) (*Server, error) {
	recvBytes, err := cfg.GRPC.RecvMsgBytes()
	if err != nil {
		return nil, err
	}
	sendBytes, err := cfg.GRPC.SendMsgBytes()
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metricsCollector := metrics.NewInMemoryMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	agentMetrics := metrics.NewAgentMetrics(registry)

	// Create gRPC server with interceptors
	grpcServer := grpc.NewServer(
		grpc.MaxConcurrentStreams(uint32(cfg.Server.MaxConcurrentStreams)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.Server.Keepalive.Time,
			Timeout: cfg.Server.Keepalive.Timeout,
		}),
		grpc.MaxRecvMsgSize(recvBytes),
		grpc.MaxSendMsgSize(sendBytes),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			MetricsInterceptor(metricsCollector),
			TimeoutInterceptor(cfg.Server.RequestTimeout),
		),
	)

	agentService := service.NewAgentService(cfg, metricsCollector, agentMetrics)
	pb.RegisterAgentServiceServer(grpcServer, agentService)

	var healthServer *health.Server
	if cfg.GRPC.HealthCheckEnabled {
		healthServer = health.NewServer()
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(pb.AgentServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	}

	if cfg.GRPC.ReflectionEnabled {
		reflection.Register(grpcServer)
	}

	metricsServer := metrics.NewMetricsServer(&cfg.Metrics, metricsCollector, registry, agentService)

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:        cfg,
		grpcServer:    grpcServer,
		healthServer:  healthServer,
		metrics:       metricsCollector,
		agentMetrics:  agentMetrics,
		metricsServer: metricsServer,
		agentService:  agentService,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start listens on the configured address and serves until stopped
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if err := s.metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.GetLogger().Infof("Starting gRPC server on %s", addr)
	return s.Serve(listener)
}

// Serve runs the agent service and the gRPC server on lis (blocking call)
func (s *Server) Serve(lis net.Listener) error {
	s.agentService.Start(s.ctx)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.GetLogger().Info("Shutting down server...")

	if s.healthServer != nil {
		s.healthServer.Shutdown()
	}

	// Stop gRPC server gracefully
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	// Wait for graceful shutdown or timeout
	select {
	case <-done:
		logger.GetLogger().Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		logger.GetLogger().Warn("Graceful shutdown timeout, forcing stop")
		s.grpcServer.Stop()
	}

	s.cancel()
	s.agentService.Stop()

	if err := s.metricsServer.Stop(ctx); err != nil {
		logger.GetLogger().Errorf("Failed to stop metrics server: %v", err)
	}

	logger.GetLogger().Info("Server shutdown completed")
	return nil
}

// GetMetrics returns current request statistics
func (s *Server) GetMetrics() map[string]interface{} {
	return s.metrics.GetStats()
}

// AgentService exposes the hosted agent registry
func (s *Server) AgentService() *service.AgentService {
	return s.agentService
}

// MetricsHandler returns the HTTP handler of the metrics server
func (s *Server) MetricsHandler() http.Handler {
	return s.metricsServer.Handler()
}
