package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "tabular-rl-server/api/proto"
	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:                 "127.0.0.1",
			Port:                 40040,
			MaxConcurrentStreams: 100,
			Keepalive:            config.KeepaliveConfig{Time: 30 * time.Second, Timeout: 5 * time.Second},
			RequestTimeout:       5 * time.Second,
			ShutdownTimeout:      5 * time.Second,
		},
		GRPC: config.GRPCConfig{
			ReflectionEnabled:  true,
			HealthCheckEnabled: true,
			MaxRecvMsgSize:     "1MB",
			MaxSendMsgSize:     "1MB",
		},
		Metrics: config.MetricsConfig{Enabled: false, Port: 9090, Path: "/metrics"},
		Agent: config.AgentConfig{
			StateCount:     4,
			ActionCount:    2,
			LearningRate:   0.5,
			DecaySteps:     10,
			DiscountFactor: 0.9,
			TieBreak:       config.TieBreakFirst,
		},
		Sessions: config.SessionsConfig{MaxAgents: 4, IdleTimeout: time.Minute, CleanupInterval: time.Minute},
	}
}

func startTestServer(t *testing.T) (*Server, *grpc.ClientConn) {
	t.Helper()

	s, err := NewServer(testConfig())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	go s.Serve(lis)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return s, conn
}

func TestNewServerRejectsBadMessageSize(t *testing.T) {
	cfg := testConfig()
	cfg.GRPC.MaxRecvMsgSize = "lots"
	if _, err := NewServer(cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestHealthService(t *testing.T) {
	_, conn := startTestServer(t)
	health := grpc_health_v1.NewHealthClient(conn)

	for _, name := range []string{"", pb.AgentServiceName} {
		resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: name})
		if err != nil {
			t.Fatalf("Check(%q): %v", name, err)
		}
		if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v", name, resp.Status)
		}
	}
}

func TestEpisodeThroughFullStack(t *testing.T) {
	s, conn := startTestServer(t)
	client := pb.NewAgentServiceClient(conn)
	ctx := context.Background()

	created, err := client.CreateAgent(ctx, &pb.CreateAgentRequest{})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	id := created.AgentId

	if _, err := client.StartEpisode(ctx, &pb.StartEpisodeRequest{AgentId: id}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: &pb.Transition{State: 0, Action: 1, Reward: 1, NextState: 3, Terminal: true}}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.EndEpisode(ctx, &pb.EndEpisodeRequest{AgentId: id}); err != nil {
		t.Fatal(err)
	}
	_, err = client.Plan(ctx, &pb.PlanRequest{AgentId: id, State: 99})
	if status.Code(err) != codes.OutOfRange {
		t.Errorf("expected OutOfRange, got %v", err)
	}

	stats := s.GetMetrics()
	if stats["total_requests"] != int64(5) || stats["failed_requests"] != int64(1) {
		t.Errorf("request stats %v", stats)
	}

	srv := httptest.NewServer(s.MetricsHandler())
	defer srv.Close()

	body := httpGet(t, srv.URL+"/metrics")
	if !strings.Contains(body, `tabular_agent_episodes_total{agent_id="`+id+`"} 1`) {
		t.Errorf("episode counter missing from exposition")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Errorf("runtime collectors missing from exposition")
	}
	if body := httpGet(t, srv.URL+"/agents/"+id+"/chart"); !strings.Contains(body, "echarts") {
		t.Errorf("chart not rendered")
	}
}

func httpGet(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(body)
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}
	_, err := RecoveryInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("expected Internal, got %v", err)
	}
}

func TestTimeoutInterceptor(t *testing.T) {
	interceptor := TimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Deadline"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			t.Errorf("deadline not applied: %v %v", deadline, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.NewInMemoryMetrics()
	interceptor := MetricsInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Count"}

	ok := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }
	fail := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "nope")
	}

	interceptor(context.Background(), nil, info, ok)
	interceptor(context.Background(), nil, info, ok)
	interceptor(context.Background(), nil, info, fail)

	stats := m.GetStats()
	if stats["total_requests"] != int64(3) || stats["successful_requests"] != int64(2) || stats["failed_requests"] != int64(1) {
		t.Errorf("unexpected stats %v", stats)
	}
}
