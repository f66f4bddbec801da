package rl

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// AgentOption configures the Agent
type AgentOption func(*Agent)

// WithLogger sets the logger, typically one carrying an agent_id field
func WithLogger(l logrus.FieldLogger) AgentOption {
	return func(a *Agent) {
		a.logger = l
	}
}

// WithRecorder reports training progress to r
func WithRecorder(r Recorder) AgentOption {
	return func(a *Agent) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithRandSource overrides the noise source derived from the configured seed
func WithRandSource(src rand.Source) AgentOption {
	return func(a *Agent) {
		a.src = src
	}
}
