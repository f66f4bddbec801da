package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "tabular-rl-server/api/proto"
	"tabular-rl-server/internal/rl"
	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/logger"
	"tabular-rl-server/pkg/metrics"
)

// AgentService hosts tabular agents for external driving loops
type AgentService struct {
	pb.UnimplementedAgentServiceServer
	metrics      *metrics.InMemoryMetrics
	agentMetrics *metrics.AgentMetrics
	config       *config.Config
	startTime    time.Time

	mu       sync.RWMutex
	sessions map[string]*session

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	now       func() time.Time
}

func NewAgentService(cfg *config.Config, metrics *metrics.InMemoryMetrics, agentMetrics *metrics.AgentMetrics) *AgentService {
	return &AgentService{
		metrics:      metrics,
		agentMetrics: agentMetrics,
		config:       cfg,
		startTime:    time.Now(),
		sessions:     make(map[string]*session),
		now:          time.Now,
	}
}

// Start launches the idle-session janitor when an idle timeout is set
func (s *AgentService) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel != nil {
		return
	}
	if s.config.Sessions.IdleTimeout <= 0 {
		logger.GetLogger().Info("Agent service started without idle eviction")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.janitor(ctx, s.done)

	logger.GetLogger().Infof("Agent service started, evicting agents idle for %v", s.config.Sessions.IdleTimeout)
}

// Stop halts the janitor. Hosted agents stay until the process exits.
func (s *AgentService) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	logger.GetLogger().Infof("Agent service stopped with %d agents", s.AgentCount())
}

func (s *AgentService) janitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Sessions.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

// evictIdle removes sessions idle longer than the configured timeout and
// returns how many were removed
func (s *AgentService) evictIdle() int {
	now := s.now()
	timeout := s.config.Sessions.IdleTimeout

	var idle []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(now) > timeout {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.close()
		s.agentMetrics.Forget(sess.id)
		s.metrics.AgentEvicted()
		logger.GetLogger().WithFields(logrus.Fields{
			"agent_id": sess.id,
			"idle":     sess.idleSince(now).String(),
		}).Info("Evicted idle agent")
	}
	return len(idle)
}

// AgentCount returns the number of hosted agents
func (s *AgentService) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// History returns an agent's running-average history for the chart endpoint
func (s *AgentService) History(agentID string) ([]float64, bool) {
	var history []float64
	err := s.withSession(agentID, false, func(sess *session) error {
		history = sess.agent.History()
		return nil
	})
	return history, err == nil
}

// withSession runs fn holding the agent's lock
func (s *AgentService) withSession(agentID string, touch bool, fn func(*session) error) error {
	if agentID == "" {
		return status.Error(codes.InvalidArgument, "agent_id is required")
	}

	s.mu.RLock()
	sess, ok := s.sessions[agentID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if touch {
		sess.touch(s.now())
	}
	return fn(sess)
}

// effectiveConfig applies the set request fields over the configured defaults
func (s *AgentService) effectiveConfig(req *pb.AgentConfig) config.AgentConfig {
	cfg := s.config.Agent
	if req == nil {
		return cfg
	}
	if req.StateCount != nil {
		cfg.StateCount = *req.StateCount
	}
	if req.ActionCount != nil {
		cfg.ActionCount = *req.ActionCount
	}
	if req.LearningRate != nil {
		cfg.LearningRate = *req.LearningRate
	}
	if req.DecaySteps != nil {
		cfg.DecaySteps = *req.DecaySteps
	}
	if req.DiscountFactor != nil {
		cfg.DiscountFactor = *req.DiscountFactor
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.TieBreak != nil {
		cfg.TieBreak = *req.TieBreak
	}
	return cfg
}

func toProtoConfig(cfg config.AgentConfig) *pb.AgentConfig {
	return &pb.AgentConfig{
		StateCount:     pb.Int(cfg.StateCount),
		ActionCount:    pb.Int(cfg.ActionCount),
		LearningRate:   pb.Float64(cfg.LearningRate),
		DecaySteps:     pb.Int(cfg.DecaySteps),
		DiscountFactor: pb.Float64(cfg.DiscountFactor),
		Seed:           pb.Uint64(cfg.Seed),
		TieBreak:       pb.String(cfg.TieBreak),
	}
}

// CreateAgent builds a fresh agent from the request overrides
func (s *AgentService) CreateAgent(ctx context.Context, req *pb.CreateAgentRequest) (*pb.CreateAgentResponse, error) {
	cfg := s.effectiveConfig(req.Config)

	tieBreak, err := rl.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, toStatus(err)
	}
	cfg.TieBreak = string(tieBreak)

	id := uuid.NewString()
	agent, err := rl.NewAgent(cfg,
		rl.WithLogger(logger.GetLogger().WithField("agent_id", id)),
		rl.WithRecorder(s.agentMetrics.ForAgent(id)),
	)
	if err != nil {
		return nil, toStatus(err)
	}

	s.mu.Lock()
	if len(s.sessions) >= s.config.Sessions.MaxAgents {
		s.mu.Unlock()
		return nil, toStatus(fmt.Errorf("%w: %d agents hosted", ErrTooManyAgents, s.config.Sessions.MaxAgents))
	}
	s.sessions[id] = newSession(id, agent, rl.NewSelector(tieBreak, cfg.Seed+1), s.now())
	s.mu.Unlock()

	s.metrics.AgentCreated()
	logger.GetLogger().WithFields(logrus.Fields{
		"agent_id": id,
		"states":   cfg.StateCount,
		"actions":  cfg.ActionCount,
	}).Info("Agent created")

	return &pb.CreateAgentResponse{AgentId: id, Config: toProtoConfig(cfg)}, nil
}

// DeleteAgent drops an agent and its metric series
func (s *AgentService) DeleteAgent(ctx context.Context, req *pb.DeleteAgentRequest) (*pb.DeleteAgentResponse, error) {
	if req.AgentId == "" {
		return nil, status.Error(codes.InvalidArgument, "agent_id is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[req.AgentId]
	delete(s.sessions, req.AgentId)
	s.mu.Unlock()
	if !ok {
		return nil, toStatus(fmt.Errorf("%w: %s", ErrAgentNotFound, req.AgentId))
	}

	sess.close()
	s.agentMetrics.Forget(sess.id)
	s.metrics.AgentDeleted()
	logger.GetLogger().WithField("agent_id", sess.id).Info("Agent deleted")

	return &pb.DeleteAgentResponse{Success: true}, nil
}

// Plan scores the actions of a state and suggests one
func (s *AgentService) Plan(ctx context.Context, req *pb.PlanRequest) (*pb.PlanResponse, error) {
	var resp *pb.PlanResponse
	err := s.withSession(req.AgentId, true, func(sess *session) error {
		scores, err := sess.agent.Plan(req.State)
		if err != nil {
			return err
		}
		if err := checkFinite("scores", scores...); err != nil {
			return err
		}
		resp = &pb.PlanResponse{
			Scores:       scores,
			Action:       sess.selector.Select(scores),
			EpisodeCount: sess.agent.EpisodeCount(),
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// StartEpisode resets the per-episode return
func (s *AgentService) StartEpisode(ctx context.Context, req *pb.StartEpisodeRequest) (*pb.StartEpisodeResponse, error) {
	var resp *pb.StartEpisodeResponse
	err := s.withSession(req.AgentId, true, func(sess *session) error {
		sess.agent.NotifyEpisodeStart()
		resp = &pb.StartEpisodeResponse{EpisodeCount: sess.agent.EpisodeCount()}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// Step learns from one transition
func (s *AgentService) Step(ctx context.Context, req *pb.StepRequest) (*pb.StepResponse, error) {
	if req.Transition == nil {
		return nil, status.Error(codes.InvalidArgument, "transition is required")
	}
	t := rl.Transition{
		State:     req.Transition.State,
		Action:    req.Transition.Action,
		Reward:    req.Transition.Reward,
		NextState: req.Transition.NextState,
		Terminal:  req.Transition.Terminal,
	}

	var resp *pb.StepResponse
	err := s.withSession(req.AgentId, true, func(sess *session) error {
		lr := sess.agent.LearningRate()
		if err := sess.agent.NotifyStep(t); err != nil {
			return err
		}
		value, err := sess.agent.Value(t.State, t.Action)
		if err != nil {
			return err
		}
		value, valueOK := finiteOrZero(value)
		episodeReturn, returnOK := finiteOrZero(sess.agent.EpisodeReturn())
		resp = &pb.StepResponse{
			EpisodeCount:  sess.agent.EpisodeCount(),
			LearningRate:  lr,
			Value:         value,
			EpisodeReturn: episodeReturn,
			Diverged:      !valueOK || !returnOK,
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// EndEpisode folds the episode return into the running average
func (s *AgentService) EndEpisode(ctx context.Context, req *pb.EndEpisodeRequest) (*pb.EndEpisodeResponse, error) {
	var resp *pb.EndEpisodeResponse
	err := s.withSession(req.AgentId, true, func(sess *session) error {
		episodeReturn, returnOK := finiteOrZero(sess.agent.EpisodeReturn())
		average, averageOK := finiteOrZero(sess.agent.NotifyEpisodeEnd())
		resp = &pb.EndEpisodeResponse{
			RunningAverage:    average,
			EpisodeReturn:     episodeReturn,
			CompletedEpisodes: sess.agent.CompletedEpisodes(),
			CounterDrift:      sess.agent.CounterDrift(),
			Diverged:          !returnOK || !averageOK,
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// EndRun records the end of a training run; the agent stays hosted
func (s *AgentService) EndRun(ctx context.Context, req *pb.EndRunRequest) (*pb.EndRunResponse, error) {
	err := s.withSession(req.AgentId, true, func(sess *session) error {
		sess.agent.NotifyRunEnd(req.Aborted)
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.EndRunResponse{Success: true}, nil
}

// GetMetrics returns the agent's metrics, history and statistics
func (s *AgentService) GetMetrics(ctx context.Context, req *pb.GetMetricsRequest) (*pb.GetMetricsResponse, error) {
	var resp *pb.GetMetricsResponse
	err := s.withSession(req.AgentId, false, func(sess *session) error {
		m := sess.agent.Metrics()
		history := sess.agent.History()
		if err := checkFinite("history", history...); err != nil {
			return err
		}
		resp = &pb.GetMetricsResponse{
			Metrics: m,
			History: history,
			Stats:   jsonSafeStats(sess.agent.Stats()),
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// GetQTable returns a copy of the agent's value table
func (s *AgentService) GetQTable(ctx context.Context, req *pb.GetQTableRequest) (*pb.GetQTableResponse, error) {
	var rows [][]float64
	err := s.withSession(req.AgentId, false, func(sess *session) error {
		rows = sess.agent.QTable()
		return checkFiniteRows("rows", rows)
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.GetQTableResponse{Rows: rows}, nil
}
