package rl

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ExplorationPolicy perturbs action values with Gaussian noise whose scale
// decays harmonically with the episode count.
type ExplorationPolicy struct {
	noise distuv.Normal
}

// NewExplorationPolicy creates a policy drawing from src
func NewExplorationPolicy(src rand.Source) *ExplorationPolicy {
	return &ExplorationPolicy{
		noise: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// NewSeededExplorationPolicy creates a reproducible policy
func NewSeededExplorationPolicy(seed uint64) *ExplorationPolicy {
	return NewExplorationPolicy(newSource(seed))
}

func newSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// NoiseScale is the standard deviation of the noise added at episodeCount
func NoiseScale(episodeCount int) float64 {
	return 1 / float64(episodeCount)
}

// Score returns qRow plus one N(0, 1/episodeCount^2) sample per action.
// qRow is not modified.
func (p *ExplorationPolicy) Score(qRow []float64, episodeCount int) []float64 {
	scale := NoiseScale(episodeCount)
	scores := make([]float64, len(qRow))
	for i, q := range qRow {
		scores[i] = q + p.noise.Rand()*scale
	}
	return scores
}
