package service

import (
	"context"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "tabular-rl-server/api/proto"
	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/metrics"
)

const bufSize = 1024 * 1024

func testConfig() *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			StateCount:     4,
			ActionCount:    2,
			LearningRate:   0.5,
			DecaySteps:     10,
			DiscountFactor: 0.9,
			Seed:           1,
			TieBreak:       config.TieBreakFirst,
		},
		Sessions: config.SessionsConfig{
			MaxAgents:       2,
			IdleTimeout:     time.Minute,
			CleanupInterval: time.Hour,
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config) (*AgentService, pb.AgentServiceClient) {
	t.Helper()

	svc := NewAgentService(cfg, metrics.NewInMemoryMetrics(), metrics.NewAgentMetrics(prometheus.NewRegistry()))

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	pb.RegisterAgentServiceServer(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

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

	return svc, pb.NewAgentServiceClient(conn)
}

func createAgent(t *testing.T, client pb.AgentServiceClient, cfg *pb.AgentConfig) string {
	t.Helper()
	resp, err := client.CreateAgent(context.Background(), &pb.CreateAgentRequest{Config: cfg})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	return resp.AgentId
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := status.Code(err); got != code {
		t.Errorf("expected %v, got %v (%v)", code, got, err)
	}
}

func TestSingleEpisodeOverGRPC(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()
	id := createAgent(t, client, nil)

	if _, err := client.StartEpisode(ctx, &pb.StartEpisodeRequest{AgentId: id}); err != nil {
		t.Fatalf("StartEpisode: %v", err)
	}

	plan, err := client.Plan(ctx, &pb.PlanRequest{AgentId: id, State: 0})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Scores) != 2 || plan.EpisodeCount != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.Action < 0 || plan.Action > 1 {
		t.Errorf("suggested action %d out of range", plan.Action)
	}

	step, err := client.Step(ctx, &pb.StepRequest{
		AgentId:    id,
		Transition: &pb.Transition{State: 0, Action: 1, Reward: 1, NextState: 3, Terminal: true},
	})
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := math.Pow(0.5, 0.1)
	if math.Abs(step.Value-want) > 1e-12 || math.Abs(step.LearningRate-want) > 1e-12 {
		t.Errorf("value %v rate %v, want %v", step.Value, step.LearningRate, want)
	}
	if step.EpisodeCount != 2 || step.EpisodeReturn != 1 {
		t.Errorf("unexpected step response %+v", step)
	}

	end, err := client.EndEpisode(ctx, &pb.EndEpisodeRequest{AgentId: id})
	if err != nil {
		t.Fatalf("EndEpisode: %v", err)
	}
	if math.Abs(end.RunningAverage-0.01) > 1e-12 || end.EpisodeReturn != 1 || end.CounterDrift != 0 || end.CompletedEpisodes != 1 {
		t.Errorf("unexpected end response %+v", end)
	}

	table, err := client.GetQTable(ctx, &pb.GetQTableRequest{AgentId: id})
	if err != nil {
		t.Fatalf("GetQTable: %v", err)
	}
	if len(table.Rows) != 4 || math.Abs(table.Rows[0][1]-want) > 1e-12 || table.Rows[0][0] != 0 {
		t.Errorf("unexpected table %v", table.Rows)
	}

	m, err := client.GetMetrics(ctx, &pb.GetMetricsRequest{AgentId: id})
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if math.Abs(m.Metrics["average_return"]-0.01) > 1e-12 {
		t.Errorf("metrics %v", m.Metrics)
	}
	if len(m.History) != 2 || m.History[0] != 0 {
		t.Errorf("history %v", m.History)
	}
	if m.Stats["episode_count"] != float64(2) {
		t.Errorf("stats episode_count %v", m.Stats["episode_count"])
	}

	if _, err := client.EndRun(ctx, &pb.EndRunRequest{AgentId: id}); err != nil {
		t.Fatalf("EndRun: %v", err)
	}
	// learned state survives the run
	if table, _ := client.GetQTable(ctx, &pb.GetQTableRequest{AgentId: id}); table.Rows[0][1] == 0 {
		t.Error("EndRun cleared the table")
	}
}

func TestCreateAgentAppliesDefaults(t *testing.T) {
	_, client := newTestService(t, testConfig())

	resp, err := client.CreateAgent(context.Background(), &pb.CreateAgentRequest{
		Config: &pb.AgentConfig{StateCount: pb.Int(10), TieBreak: pb.String(config.TieBreakRandom)},
	})
	if err != nil {
		t.Fatal(err)
	}
	c := resp.Config
	if *c.StateCount != 10 || *c.ActionCount != 2 || *c.LearningRate != 0.5 || *c.DecaySteps != 10 || *c.TieBreak != "random" {
		t.Errorf("unexpected effective config %+v", c)
	}
	if *c.DiscountFactor != 0.9 || *c.Seed != 1 {
		t.Errorf("unset fields did not take defaults: discount %v seed %v", *c.DiscountFactor, *c.Seed)
	}
	if resp.AgentId == "" {
		t.Error("empty agent id")
	}
}

func TestCreateAgentHonoursExplicitZeros(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()

	resp, err := client.CreateAgent(ctx, &pb.CreateAgentRequest{
		Config: &pb.AgentConfig{DiscountFactor: pb.Float64(0), Seed: pb.Uint64(0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if *resp.Config.DiscountFactor != 0 || *resp.Config.Seed != 0 {
		t.Fatalf("explicit zeros replaced by defaults: discount %v seed %v", *resp.Config.DiscountFactor, *resp.Config.Seed)
	}

	// with discount 0 the target ignores the next state's value
	id := resp.AgentId
	steps := []*pb.Transition{
		{State: 1, Action: 0, Reward: 10, NextState: 2, Terminal: true},
		{State: 0, Action: 0, Reward: 1, NextState: 1},
	}
	var last *pb.StepResponse
	for _, tr := range steps {
		last, err = client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: tr})
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	want := math.Pow(0.5, 0.2)
	if math.Abs(last.Value-want) > 1e-12 {
		t.Errorf("Q[0,0] = %v, want %v", last.Value, want)
	}
}

func TestErrorCodes(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()
	id := createAgent(t, client, nil)

	_, err := client.Plan(ctx, &pb.PlanRequest{AgentId: "missing"})
	wantCode(t, err, codes.NotFound)

	_, err = client.Plan(ctx, &pb.PlanRequest{AgentId: id, State: 4})
	wantCode(t, err, codes.OutOfRange)

	_, err = client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: &pb.Transition{State: 0, Action: 2, NextState: 1}})
	wantCode(t, err, codes.OutOfRange)

	_, err = client.Step(ctx, &pb.StepRequest{AgentId: id})
	wantCode(t, err, codes.InvalidArgument)

	_, err = client.StartEpisode(ctx, &pb.StartEpisodeRequest{})
	wantCode(t, err, codes.InvalidArgument)

	_, err = client.CreateAgent(ctx, &pb.CreateAgentRequest{Config: &pb.AgentConfig{LearningRate: pb.Float64(1.5)}})
	wantCode(t, err, codes.InvalidArgument)

	_, err = client.CreateAgent(ctx, &pb.CreateAgentRequest{Config: &pb.AgentConfig{TieBreak: pb.String("last")}})
	wantCode(t, err, codes.InvalidArgument)

	_, err = client.DeleteAgent(ctx, &pb.DeleteAgentRequest{AgentId: "missing"})
	wantCode(t, err, codes.NotFound)

	// the rejected step left the counter alone
	plan, err := client.Plan(ctx, &pb.PlanRequest{AgentId: id, State: 0})
	if err != nil || plan.EpisodeCount != 1 {
		t.Errorf("plan after rejected step: %+v, %v", plan, err)
	}
}

func TestAgentLimit(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()

	first := createAgent(t, client, nil)
	createAgent(t, client, nil)

	_, err := client.CreateAgent(ctx, &pb.CreateAgentRequest{})
	wantCode(t, err, codes.ResourceExhausted)

	if _, err := client.DeleteAgent(ctx, &pb.DeleteAgentRequest{AgentId: first}); err != nil {
		t.Fatalf("DeleteAgent: %v", err)
	}
	createAgent(t, client, nil)

	_, err = client.Plan(ctx, &pb.PlanRequest{AgentId: first})
	wantCode(t, err, codes.NotFound)
}

func TestEvictIdle(t *testing.T) {
	svc, client := newTestService(t, testConfig())
	ctx := context.Background()

	clock := time.Now()
	svc.now = func() time.Time { return clock }

	idle := createAgent(t, client, nil)
	busy := createAgent(t, client, nil)

	clock = clock.Add(45 * time.Second)
	if _, err := client.Plan(ctx, &pb.PlanRequest{AgentId: busy}); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(30 * time.Second)
	if n := svc.evictIdle(); n != 1 {
		t.Fatalf("evicted %d agents, want 1", n)
	}

	_, err := client.Plan(ctx, &pb.PlanRequest{AgentId: idle})
	wantCode(t, err, codes.NotFound)
	if _, ok := svc.History(idle); ok {
		t.Error("history still served for evicted agent")
	}
	if _, ok := svc.History(busy); !ok {
		t.Error("busy agent was evicted")
	}
}

func TestStartStopJanitor(t *testing.T) {
	cfg := testConfig()
	cfg.Sessions.CleanupInterval = 5 * time.Millisecond
	svc, client := newTestService(t, cfg)

	clock := time.Now()
	var clockMu sync.Mutex
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	id := createAgent(t, client, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	clockMu.Lock()
	clock = clock.Add(2 * time.Minute)
	clockMu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for svc.AgentCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("agent %s not evicted by janitor", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDivergedStepIsAppliedOnce(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()
	id := createAgent(t, client, nil)

	huge := &pb.Transition{State: 0, Action: 0, Reward: math.MaxFloat64, NextState: 1, Terminal: true}
	first, err := client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: huge})
	if err != nil {
		t.Fatalf("first step: %v", err)
	}
	if first.Diverged || first.EpisodeCount != 2 {
		t.Errorf("unexpected first step %+v", first)
	}

	// the episode return overflows to +Inf on the second step
	second, err := client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: huge})
	if err != nil {
		t.Fatalf("second step: %v", err)
	}
	if !second.Diverged || second.EpisodeReturn != 0 || second.EpisodeCount != 3 {
		t.Errorf("unexpected diverged step %+v", second)
	}

	m, err := client.GetMetrics(ctx, &pb.GetMetricsRequest{AgentId: id})
	if err != nil {
		t.Fatalf("GetMetrics after overflow: %v", err)
	}
	if m.Stats["episode_count"] != float64(3) || m.Stats["steps"] != float64(2) {
		t.Errorf("counters after diverged step: episode_count %v steps %v", m.Stats["episode_count"], m.Stats["steps"])
	}

	end, err := client.EndEpisode(ctx, &pb.EndEpisodeRequest{AgentId: id})
	if err != nil {
		t.Fatalf("EndEpisode: %v", err)
	}
	if !end.Diverged || end.CompletedEpisodes != 1 {
		t.Errorf("unexpected end response %+v", end)
	}

	// read-only views refuse values JSON cannot carry
	_, err = client.GetMetrics(ctx, &pb.GetMetricsRequest{AgentId: id})
	wantCode(t, err, codes.DataLoss)
}

func TestConcurrentAgentsStayIndependent(t *testing.T) {
	_, client := newTestService(t, testConfig())
	ctx := context.Background()
	ids := []string{createAgent(t, client, nil), createAgent(t, client, nil)}

	const episodes = 20
	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for ep := 0; ep < episodes; ep++ {
				if _, err := client.StartEpisode(ctx, &pb.StartEpisodeRequest{AgentId: id}); err != nil {
					errs <- err
					return
				}
				for s := 0; s < 3; s++ {
					plan, err := client.Plan(ctx, &pb.PlanRequest{AgentId: id, State: s})
					if err != nil {
						errs <- err
						return
					}
					tr := &pb.Transition{State: s, Action: plan.Action, Reward: 0.1, NextState: s + 1, Terminal: s == 2}
					if _, err := client.Step(ctx, &pb.StepRequest{AgentId: id, Transition: tr}); err != nil {
						errs <- err
						return
					}
				}
				if _, err := client.EndEpisode(ctx, &pb.EndEpisodeRequest{AgentId: id}); err != nil {
					errs <- err
					return
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("driving loop failed: %v", err)
	}

	for _, id := range ids {
		m, err := client.GetMetrics(ctx, &pb.GetMetricsRequest{AgentId: id})
		if err != nil {
			t.Fatal(err)
		}
		if m.Stats["episode_count"] != float64(episodes+1) || m.Stats["episode_counter_drift"] != float64(0) {
			t.Errorf("agent %s: stats %v", id, m.Stats)
		}
		if len(m.History) != episodes+1 {
			t.Errorf("agent %s: history length %d", id, len(m.History))
		}
	}
}

func TestGetServerStats(t *testing.T) {
	_, client := newTestService(t, testConfig())
	createAgent(t, client, nil)

	stats, err := client.GetServerStats(context.Background(), &pb.GetServerStatsRequest{})
	if err != nil {
		t.Fatalf("GetServerStats: %v", err)
	}
	if stats.ActiveAgents != 1 || stats.Goroutines <= 0 || stats.Timestamp == 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
