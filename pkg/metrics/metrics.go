package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tabular-rl-server/internal/rl"
)

const (
	namespace = "tabular"
	subsystem = "agent"

	labelAgentID = "agent_id"
	labelOutcome = "outcome"
)

// AgentMetrics exports training progress of hosted agents to Prometheus.
// Every series carries the agent_id label.
type AgentMetrics struct {
	registry *prometheus.Registry

	// Counters
	steps     *prometheus.CounterVec
	terminals *prometheus.CounterVec
	episodes  *prometheus.CounterVec
	runs      *prometheus.CounterVec

	// Gauges
	runningAverage *prometheus.GaugeVec
	lastReturn     *prometheus.GaugeVec
	learningRate   *prometheus.GaugeVec
	episodeCount   *prometheus.GaugeVec

	// Histograms
	episodeReturn *prometheus.HistogramVec
}

// NewAgentMetrics registers the agent collectors on reg
func NewAgentMetrics(reg *prometheus.Registry) *AgentMetrics {
	factory := promauto.With(reg)
	agent := []string{labelAgentID}

	return &AgentMetrics{
		registry: reg,
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "steps_total",
			Help:      "Total number of transitions learned from",
		}, agent),
		terminals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "terminal_transitions_total",
			Help:      "Total number of terminal transitions learned from",
		}, agent),
		episodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "episodes_total",
			Help:      "Total number of completed episodes",
		}, agent),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Total number of training runs by outcome",
		}, []string{labelAgentID, labelOutcome}),
		runningAverage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "running_average_return",
			Help:      "Exponential running average of episode returns",
		}, agent),
		lastReturn: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_episode_return",
			Help:      "Undiscounted return of the most recent episode",
		}, agent),
		learningRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "learning_rate",
			Help:      "Effective learning rate of the most recent update",
		}, agent),
		episodeCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "episode_count",
			Help:      "Episode counter driving the decay schedules",
		}, agent),
		episodeReturn: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "episode_return",
			Help:      "Distribution of undiscounted episode returns",
			Buckets:   prometheus.LinearBuckets(-1, 0.5, 9),
		}, agent),
	}
}

// Registry returns the registry the collectors live on
func (m *AgentMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ForAgent returns a recorder bound to one agent's label set
func (m *AgentMetrics) ForAgent(agentID string) *AgentRecorder {
	return &AgentRecorder{metrics: m, agentID: agentID}
}

// Forget drops every series of an agent
func (m *AgentMetrics) Forget(agentID string) {
	labels := prometheus.Labels{labelAgentID: agentID}
	m.steps.DeletePartialMatch(labels)
	m.terminals.DeletePartialMatch(labels)
	m.episodes.DeletePartialMatch(labels)
	m.runs.DeletePartialMatch(labels)
	m.runningAverage.DeletePartialMatch(labels)
	m.lastReturn.DeletePartialMatch(labels)
	m.learningRate.DeletePartialMatch(labels)
	m.episodeCount.DeletePartialMatch(labels)
	m.episodeReturn.DeletePartialMatch(labels)
}

// AgentRecorder forwards one agent's training events to AgentMetrics
type AgentRecorder struct {
	metrics *AgentMetrics
	agentID string
}

var _ rl.Recorder = (*AgentRecorder)(nil)

// RecordStep counts a transition and tracks the rate used for it
func (r *AgentRecorder) RecordStep(_, learningRate float64, terminal bool) {
	r.metrics.steps.WithLabelValues(r.agentID).Inc()
	if terminal {
		r.metrics.terminals.WithLabelValues(r.agentID).Inc()
	}
	r.metrics.learningRate.WithLabelValues(r.agentID).Set(learningRate)
}

// RecordEpisode publishes the outcome of a completed episode
func (r *AgentRecorder) RecordEpisode(episodeCount int, episodeReturn, runningAverage float64) {
	r.metrics.episodes.WithLabelValues(r.agentID).Inc()
	r.metrics.episodeCount.WithLabelValues(r.agentID).Set(float64(episodeCount))
	r.metrics.lastReturn.WithLabelValues(r.agentID).Set(episodeReturn)
	r.metrics.runningAverage.WithLabelValues(r.agentID).Set(runningAverage)
	r.metrics.episodeReturn.WithLabelValues(r.agentID).Observe(episodeReturn)
}

// RecordRunEnd counts a finished run as completed or aborted
func (r *AgentRecorder) RecordRunEnd(aborted bool) {
	outcome := "completed"
	if aborted {
		outcome = "aborted"
	}
	r.metrics.runs.WithLabelValues(r.agentID, outcome).Inc()
}

// InMemoryMetrics keeps request and session statistics for the stats endpoints
type InMemoryMetrics struct {
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	agentsCreated      int64
	agentsDeleted      int64
	agentsEvicted      int64
	activeAgents       int64
	responseTimes      []time.Duration
	startTime          time.Time
	mu                 sync.RWMutex
}

// NewInMemoryMetrics creates a new in-memory metrics collector
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		startTime:     time.Now(),
		responseTimes: make([]time.Duration, 0, 1000), // Keep last 1000 response times
	}
}

// IncrementRequests increments the total request counter
func (m *InMemoryMetrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
}

// IncrementSuccessfulRequests increments successful request counter
func (m *InMemoryMetrics) IncrementSuccessfulRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successfulRequests++
}

// IncrementFailedRequests increments failed request counter
func (m *InMemoryMetrics) IncrementFailedRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRequests++
}

// AgentCreated records a new session
func (m *InMemoryMetrics) AgentCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentsCreated++
	m.activeAgents++
}

// AgentDeleted records an explicit delete
func (m *InMemoryMetrics) AgentDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentsDeleted++
	if m.activeAgents > 0 {
		m.activeAgents--
	}
}

// AgentEvicted records an idle session removed by the janitor
func (m *InMemoryMetrics) AgentEvicted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentsEvicted++
	if m.activeAgents > 0 {
		m.activeAgents--
	}
}

// RecordResponseTime records response time
func (m *InMemoryMetrics) RecordResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep only last 1000 response times to prevent memory growth
	if len(m.responseTimes) >= 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseTimes = append(m.responseTimes, duration)
}

// Uptime returns the time since the collector was created
func (m *InMemoryMetrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// GetStats returns current metrics statistics
func (m *InMemoryMetrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.startTime)

	var avgResponseTime time.Duration
	var avgResponseTimeMs float64
	if len(m.responseTimes) > 0 {
		var total time.Duration
		for _, rt := range m.responseTimes {
			total += rt
		}
		avgResponseTime = total / time.Duration(len(m.responseTimes))
		avgResponseTimeMs = float64(avgResponseTime.Nanoseconds()) / 1e6
	}

	var successRate float64
	if m.totalRequests > 0 {
		successRate = float64(m.successfulRequests) / float64(m.totalRequests) * 100
	}

	return map[string]interface{}{
		"uptime":               uptime.String(),
		"uptime_seconds":       uptime.Seconds(),
		"total_requests":       m.totalRequests,
		"successful_requests":  m.successfulRequests,
		"failed_requests":      m.failedRequests,
		"agents_created":       m.agentsCreated,
		"agents_deleted":       m.agentsDeleted,
		"agents_evicted":       m.agentsEvicted,
		"active_agents":        m.activeAgents,
		"success_rate":         successRate,
		"avg_response_time":    avgResponseTime.String(),
		"avg_response_time_ms": avgResponseTimeMs,
	}
}
