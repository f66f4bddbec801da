package rl

import "math"

// EffectiveLearningRate returns baseRate^(episodeCount/decaySteps).
//
// With 0 < baseRate < 1 the rate starts close to 1, equals baseRate when
// episodeCount reaches decaySteps and keeps shrinking toward 0 afterwards.
// decaySteps must be positive; callers validate it at construction.
func EffectiveLearningRate(baseRate float64, episodeCount, decaySteps int) float64 {
	return math.Pow(baseRate, float64(episodeCount)/float64(decaySteps))
}
