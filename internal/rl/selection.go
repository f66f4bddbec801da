package rl

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"tabular-rl-server/pkg/config"
)

// TieBreak decides which action wins when several share the best score
type TieBreak string

const (
	// TieBreakFirst picks the lowest index among equal scores
	TieBreakFirst TieBreak = config.TieBreakFirst
	// TieBreakRandom picks uniformly among equal scores
	TieBreakRandom TieBreak = config.TieBreakRandom
)

// ParseTieBreak maps a config value to a TieBreak; empty means first
func ParseTieBreak(name string) (TieBreak, error) {
	switch name {
	case "", config.TieBreakFirst:
		return TieBreakFirst, nil
	case config.TieBreakRandom:
		return TieBreakRandom, nil
	default:
		return "", fmt.Errorf("%w: unknown tie break %q", config.ErrInvalidConfig, name)
	}
}

// ArgMax returns the index of the largest score, the first one on ties.
// NaN scores never win unless every score is NaN, in which case it returns
// 0. It returns -1 for an empty slice.
func ArgMax(scores []float64) int {
	best := -1
	bestScore := math.Inf(-1)
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if best == -1 || s > bestScore {
			best = i
			bestScore = s
		}
	}
	return allNaNFallback(best, scores)
}

// RandomArgMax returns the index of the largest score, uniformly among ties.
// NaN scores are skipped the same way as in ArgMax.
func RandomArgMax(scores []float64, r *rand.Rand) int {
	best := -1
	bestScore := math.Inf(-1)
	countBest := 0
	for i, s := range scores {
		switch {
		case math.IsNaN(s):
			continue
		case best == -1 || s > bestScore:
			best = i
			bestScore = s
			countBest = 1
		case s == bestScore:
			countBest++
			if r.Intn(countBest) == 0 {
				best = i
			}
		}
	}
	return allNaNFallback(best, scores)
}

func allNaNFallback(best int, scores []float64) int {
	if best == -1 && len(scores) > 0 {
		return 0
	}
	return best
}

// Selector resolves scores into a concrete action with a fixed tie-break
type Selector struct {
	tieBreak TieBreak
	rng      *rand.Rand
}

// NewSelector creates a selector; seed only matters for TieBreakRandom
func NewSelector(tieBreak TieBreak, seed uint64) *Selector {
	return &Selector{tieBreak: tieBreak, rng: rand.New(rand.NewSource(seed))}
}

// Select returns the chosen action index
func (s *Selector) Select(scores []float64) int {
	if s.tieBreak == TieBreakRandom {
		return RandomArgMax(scores, s.rng)
	}
	return ArgMax(scores)
}

// TieBreak returns the configured convention
func (s *Selector) TieBreak() TieBreak {
	return s.tieBreak
}
