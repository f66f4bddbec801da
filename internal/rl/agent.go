package rl

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"tabular-rl-server/pkg/config"
	"tabular-rl-server/pkg/logger"
)

// Agent is a tabular Q-learning agent. It scores actions from its value
// table plus decaying Gaussian noise and learns from the transitions the
// driving loop reports back.
//
// An Agent is not safe for concurrent use; it expects a single caller that
// processes one step completely before the next.
type Agent struct {
	config      config.AgentConfig
	table       *ValueTable
	exploration *ExplorationPolicy
	returns     *ReturnTracker

	// episodeCount starts at 1 and grows by one per terminal transition.
	// It drives both the learning-rate schedule and the noise scale.
	episodeCount int
	steps        int64
	runs         int
	abortedRuns  int

	src      rand.Source
	logger   logrus.FieldLogger
	recorder Recorder
}

var (
	_ ActionScorer      = (*Agent)(nil)
	_ LifecycleObserver = (*Agent)(nil)
	_ MetricsProvider   = (*Agent)(nil)
)

// NewAgent creates an agent after validating its hyperparameters
func NewAgent(cfg config.AgentConfig, opts ...AgentOption) (*Agent, error) {
	if err := config.ValidateAgentConfig(&cfg); err != nil {
		return nil, err
	}

	table, err := NewValueTable(cfg.StateCount, cfg.ActionCount)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		config:       cfg,
		table:        table,
		returns:      NewReturnTracker(),
		episodeCount: 1,
		recorder:     noopRecorder{},
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logger.GetLogger()
	}
	if a.src == nil {
		a.src = newSource(cfg.Seed)
	}
	a.exploration = NewExplorationPolicy(a.src)

	a.logger.WithFields(logrus.Fields{
		"states":          cfg.StateCount,
		"actions":         cfg.ActionCount,
		"learning_rate":   cfg.LearningRate,
		"decay_steps":     cfg.DecaySteps,
		"discount_factor": cfg.DiscountFactor,
	}).Debug("Tabular agent created")

	return a, nil
}

// Plan returns exploration-perturbed action scores for state. It reads the
// table and the episode count but changes neither.
func (a *Agent) Plan(state int) ([]float64, error) {
	row, err := a.table.Row(state)
	if err != nil {
		return nil, err
	}
	return a.exploration.Score(row, a.episodeCount), nil
}

// NotifyEpisodeStart resets the per-episode return
func (a *Agent) NotifyEpisodeStart() {
	a.returns.OnEpisodeStart()
}

// NotifyStep learns from one transition. A rejected transition leaves the
// agent exactly as it was.
func (a *Agent) NotifyStep(t Transition) error {
	lr := a.LearningRate()

	if err := a.table.Update(t.State, t.Action, t.NextState, t.Reward, t.Terminal, lr, a.config.DiscountFactor); err != nil {
		return fmt.Errorf("failed to learn from transition %d -(%d)-> %d: %w", t.State, t.Action, t.NextState, err)
	}

	if v, _ := a.table.Value(t.State, t.Action); math.IsNaN(v) || math.IsInf(v, 0) {
		a.logger.WithFields(logrus.Fields{
			"state":  t.State,
			"action": t.Action,
			"reward": t.Reward,
			"value":  v,
		}).Warn("Value estimate is no longer finite")
	}

	a.returns.OnReward(t.Reward)
	a.steps++
	if t.Terminal {
		a.episodeCount++
	}

	a.recorder.RecordStep(t.Reward, lr, t.Terminal)
	return nil
}

// NotifyEpisodeEnd folds the finished episode's return into the running
// average and returns the new average.
func (a *Agent) NotifyEpisodeEnd() float64 {
	episodeReturn := a.returns.Accumulated()
	average := a.returns.OnEpisodeEnd()

	if drift := a.CounterDrift(); drift != 0 {
		a.logger.WithFields(logrus.Fields{
			"episode_count":      a.episodeCount,
			"completed_episodes": a.returns.Episodes(),
			"drift":              drift,
		}).Warn("Episode counter out of step with episode-end notifications")
	}

	a.recorder.RecordEpisode(a.episodeCount, episodeReturn, average)

	a.logger.WithFields(logrus.Fields{
		"episode":        a.returns.Episodes(),
		"return":         episodeReturn,
		"average_return": average,
	}).Debug("Episode completed")

	return average
}

// NotifyRunEnd records the end of a training run. Learned state is kept.
func (a *Agent) NotifyRunEnd(aborted bool) {
	a.runs++
	if aborted {
		a.abortedRuns++
	}
	a.recorder.RecordRunEnd(aborted)

	entry := a.logger.WithFields(logrus.Fields{
		"episodes":       a.returns.Episodes(),
		"steps":          a.steps,
		"average_return": a.returns.Latest(),
	})
	if aborted {
		entry.Warn("Training run aborted")
	} else {
		entry.Info("Training run completed")
	}
}

// Metrics returns the latest running average of episode returns
func (a *Agent) Metrics() map[string]float64 {
	return a.returns.Metric()
}

// EpisodeCount returns the counter used by the schedules (starts at 1)
func (a *Agent) EpisodeCount() int {
	return a.episodeCount
}

// CompletedEpisodes returns how many episode-end notifications were seen
func (a *Agent) CompletedEpisodes() int {
	return a.returns.Episodes()
}

// CounterDrift is the difference between terminal transitions seen and
// episode-end notifications seen. A loop that keeps both in lockstep
// always reads 0 here between episodes.
func (a *Agent) CounterDrift() int {
	return (a.episodeCount - 1) - a.returns.Episodes()
}

// LearningRate returns the step size the next update will use
func (a *Agent) LearningRate() float64 {
	return EffectiveLearningRate(a.config.LearningRate, a.episodeCount, a.config.DecaySteps)
}

// EpisodeReturn returns the reward accumulated in the current episode
func (a *Agent) EpisodeReturn() float64 {
	return a.returns.Accumulated()
}

// Value returns a single table entry
func (a *Agent) Value(state, action int) (float64, error) {
	return a.table.Value(state, action)
}

// QTable returns a copy of the value table
func (a *Agent) QTable() [][]float64 {
	return a.table.Snapshot()
}

// History returns the running-average history, starting with the seed 0
func (a *Agent) History() []float64 {
	return a.returns.History()
}

// Config returns the hyperparameters the agent was built with
func (a *Agent) Config() config.AgentConfig {
	return a.config
}

// Stats returns agent statistics
func (a *Agent) Stats() map[string]interface{} {
	return map[string]interface{}{
		"states":                a.config.StateCount,
		"actions":               a.config.ActionCount,
		"base_learning_rate":    a.config.LearningRate,
		"decay_steps":           a.config.DecaySteps,
		"discount_factor":       a.config.DiscountFactor,
		"learning_rate":         a.LearningRate(),
		"noise_scale":           NoiseScale(a.episodeCount),
		"episode_count":         a.episodeCount,
		"completed_episodes":    a.returns.Episodes(),
		"episode_counter_drift": a.CounterDrift(),
		"steps":                 a.steps,
		"runs":                  a.runs,
		"aborted_runs":          a.abortedRuns,
		"average_return":        a.returns.Latest(),
		"avg_q_value":           a.table.Mean(),
		"q_table_has_nan":       a.table.HasNaN(),
	}
}
