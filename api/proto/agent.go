// Package proto defines the messages and service of tabular.v1.AgentService.
// Messages travel as JSON through the codec registered in codec.go.
package proto

// AgentConfig carries agent hyperparameters. On CreateAgent, unset (nil)
// fields take the server defaults; a set field is used as given, zero
// included. Responses always set every field.
type AgentConfig struct {
	StateCount     *int     `json:"state_count,omitempty"`
	ActionCount    *int     `json:"action_count,omitempty"`
	LearningRate   *float64 `json:"learning_rate,omitempty"`
	DecaySteps     *int     `json:"decay_steps,omitempty"`
	DiscountFactor *float64 `json:"discount_factor,omitempty"`
	Seed           *uint64  `json:"seed,omitempty"`
	TieBreak       *string  `json:"tie_break,omitempty"`
}

// Int returns a pointer to v for optional message fields
func Int(v int) *int { return &v }

// Float64 returns a pointer to v for optional message fields
func Float64(v float64) *float64 { return &v }

// Uint64 returns a pointer to v for optional message fields
func Uint64(v uint64) *uint64 { return &v }

// String returns a pointer to v for optional message fields
func String(v string) *string { return &v }

// Transition is one environment step reported by the driving loop
type Transition struct {
	State     int     `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState int     `json:"next_state"`
	Terminal  bool    `json:"terminal"`
}

type CreateAgentRequest struct {
	Config *AgentConfig `json:"config,omitempty"`
}

type CreateAgentResponse struct {
	AgentId string       `json:"agent_id"`
	Config  *AgentConfig `json:"config"`
}

type DeleteAgentRequest struct {
	AgentId string `json:"agent_id"`
}

type DeleteAgentResponse struct {
	Success bool `json:"success"`
}

type PlanRequest struct {
	AgentId string `json:"agent_id"`
	State   int    `json:"state"`
}

// PlanResponse holds the exploration-perturbed scores and the action the
// server's tie-break picks from them. Callers are free to ignore Action.
type PlanResponse struct {
	Scores       []float64 `json:"scores"`
	Action       int       `json:"action"`
	EpisodeCount int       `json:"episode_count"`
}

type StartEpisodeRequest struct {
	AgentId string `json:"agent_id"`
}

type StartEpisodeResponse struct {
	EpisodeCount int `json:"episode_count"`
}

type StepRequest struct {
	AgentId    string      `json:"agent_id"`
	Transition *Transition `json:"transition"`
}

// StepResponse reports the state after an applied transition. When the
// updated value or the episode return is no longer finite, Diverged is set
// and the affected field reads 0; the step has still been applied.
type StepResponse struct {
	EpisodeCount  int     `json:"episode_count"`
	LearningRate  float64 `json:"learning_rate"`
	Value         float64 `json:"value"`
	EpisodeReturn float64 `json:"episode_return"`
	Diverged      bool    `json:"diverged,omitempty"`
}

type EndEpisodeRequest struct {
	AgentId string `json:"agent_id"`
}

// EndEpisodeResponse follows the same Diverged convention as StepResponse
type EndEpisodeResponse struct {
	RunningAverage    float64 `json:"running_average"`
	EpisodeReturn     float64 `json:"episode_return"`
	CompletedEpisodes int     `json:"completed_episodes"`
	CounterDrift      int     `json:"counter_drift"`
	Diverged          bool    `json:"diverged,omitempty"`
}

type EndRunRequest struct {
	AgentId string `json:"agent_id"`
	Aborted bool   `json:"aborted"`
}

type EndRunResponse struct {
	Success bool `json:"success"`
}

type GetMetricsRequest struct {
	AgentId string `json:"agent_id"`
}

type GetMetricsResponse struct {
	Metrics map[string]float64     `json:"metrics"`
	History []float64              `json:"history"`
	Stats   map[string]interface{} `json:"stats"`
}

type GetQTableRequest struct {
	AgentId string `json:"agent_id"`
}

type GetQTableResponse struct {
	Rows [][]float64 `json:"rows"`
}

type GetServerStatsRequest struct{}

type GetServerStatsResponse struct {
	UptimeSeconds      int64   `json:"uptime_seconds"`
	MemoryUsageMb      int64   `json:"memory_usage_mb"`
	Goroutines         int     `json:"goroutines"`
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	SuccessRatePercent float64 `json:"success_rate_percent"`
	AvgResponseTimeMs  float64 `json:"avg_response_time_ms"`
	ActiveAgents       int     `json:"active_agents"`
	AgentsEvicted      int64   `json:"agents_evicted"`
	Timestamp          int64   `json:"timestamp"`
}
