package rl

// MetricAverageReturn is the key under which the running average of episode
// returns is exported.
const MetricAverageReturn = "average_return"

// averageSmoothing is the weight of the newest return in the running average
const averageSmoothing = 0.01

// ReturnTracker accumulates reward within an episode and keeps an
// exponential running average of completed episode returns.
type ReturnTracker struct {
	accumulated float64
	history     []float64
}

// NewReturnTracker creates a tracker whose history starts at [0]
func NewReturnTracker() *ReturnTracker {
	return &ReturnTracker{history: []float64{0}}
}

// OnEpisodeStart resets the accumulated return
func (rt *ReturnTracker) OnEpisodeStart() {
	rt.accumulated = 0
}

// OnReward adds the reward of one transition
func (rt *ReturnTracker) OnReward(r float64) {
	rt.accumulated += r
}

// OnEpisodeEnd folds the accumulated return into the running average,
// appends the new average to the history and returns it. The accumulator is
// left as is until the next OnEpisodeStart.
func (rt *ReturnTracker) OnEpisodeEnd() float64 {
	next := averageSmoothing*rt.accumulated + (1-averageSmoothing)*rt.Latest()
	rt.history = append(rt.history, next)
	return next
}

// Accumulated returns the reward collected so far in the current episode
func (rt *ReturnTracker) Accumulated() float64 {
	return rt.accumulated
}

// Latest returns the most recent running-average entry
func (rt *ReturnTracker) Latest() float64 {
	return rt.history[len(rt.history)-1]
}

// Episodes returns how many episodes have been folded in
func (rt *ReturnTracker) Episodes() int {
	return len(rt.history) - 1
}

// History returns a copy of all running-average entries, oldest first
func (rt *ReturnTracker) History() []float64 {
	out := make([]float64, len(rt.history))
	copy(out, rt.history)
	return out
}

// Metric exposes the latest running average for logging and evaluation
func (rt *ReturnTracker) Metric() map[string]float64 {
	return map[string]float64{MetricAverageReturn: rt.Latest()}
}
