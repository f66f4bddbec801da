package rl

// Transition is one environment step as reported by the driving loop
type Transition struct {
	State     int     `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState int     `json:"next_state"`
	Terminal  bool    `json:"terminal"`
}

// ActionScorer produces per-action scores for a state. Turning the scores
// into a concrete action is left to the caller.
type ActionScorer interface {
	Plan(state int) ([]float64, error)
}

// LifecycleObserver receives the episode lifecycle from the driving loop.
// For every episode the loop calls NotifyEpisodeStart, then NotifyStep once
// per transition, then NotifyEpisodeEnd after the terminal transition.
// NotifyRunEnd is sent once when the loop stops, aborted or not.
type LifecycleObserver interface {
	NotifyEpisodeStart()
	NotifyStep(t Transition) error
	NotifyEpisodeEnd() float64
	NotifyRunEnd(aborted bool)
}

// MetricsProvider exposes named training metrics
type MetricsProvider interface {
	Metrics() map[string]float64
}

// Recorder is notified of training progress, typically to export metrics
type Recorder interface {
	RecordStep(reward, learningRate float64, terminal bool)
	RecordEpisode(episodeCount int, episodeReturn, runningAverage float64)
	RecordRunEnd(aborted bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordStep(float64, float64, bool)   {}
func (noopRecorder) RecordEpisode(int, float64, float64) {}
func (noopRecorder) RecordRunEnd(bool)                   {}
