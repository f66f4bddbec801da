package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Tie-break conventions for resolving equal action scores
const (
	TieBreakFirst  = "first"
	TieBreakRandom = "random"
)

// Validate checks if the loaded configuration is valid
func Validate(c *Config) error {
	var validationErrors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "server.shutdown_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "server.request_timeout must be positive")
	}
	if c.Server.MaxConcurrentStreams <= 0 {
		validationErrors = append(validationErrors, "server.max_concurrent_streams must be positive")
	}

	if _, err := c.GRPC.RecvMsgBytes(); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}
	if _, err := c.GRPC.SendMsgBytes(); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			validationErrors = append(validationErrors, "metrics.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			validationErrors = append(validationErrors, "metrics.path must start with '/'")
		}
	}

	if c.Sessions.MaxAgents <= 0 {
		validationErrors = append(validationErrors, "sessions.max_agents must be positive")
	}
	if c.Sessions.IdleTimeout < 0 {
		validationErrors = append(validationErrors, "sessions.idle_timeout cannot be negative")
	}
	if c.Sessions.IdleTimeout > 0 && c.Sessions.CleanupInterval <= 0 {
		validationErrors = append(validationErrors, "sessions.cleanup_interval must be positive when idle_timeout is set")
	}

	if problems := agentProblems("agent", &c.Agent); len(problems) > 0 {
		validationErrors = append(validationErrors, problems...)
	}

	// If we have any validation errors, return them
	if len(validationErrors) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(validationErrors, "; "))
	}

	return nil
}

// ValidateAgentConfig checks agent hyperparameters. Agents are rejected at
// construction rather than producing meaningless numbers later (a zero
// decay_steps divides by zero in the learning-rate schedule).
func ValidateAgentConfig(cfg *AgentConfig) error {
	if problems := agentProblems("agent", cfg); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func agentProblems(prefix string, cfg *AgentConfig) []string {
	var problems []string

	if cfg.StateCount <= 0 {
		problems = append(problems, fmt.Sprintf("%s.state_count must be positive, got %d", prefix, cfg.StateCount))
	}
	if cfg.ActionCount <= 0 {
		problems = append(problems, fmt.Sprintf("%s.action_count must be positive, got %d", prefix, cfg.ActionCount))
	}
	// NaN fails both comparisons, so test for the valid range
	if !(cfg.LearningRate > 0 && cfg.LearningRate <= 1) {
		problems = append(problems, fmt.Sprintf("%s.learning_rate must be in (0, 1], got %v", prefix, cfg.LearningRate))
	}
	if cfg.DecaySteps <= 0 {
		problems = append(problems, fmt.Sprintf("%s.decay_steps must be positive, got %d", prefix, cfg.DecaySteps))
	}
	if !(cfg.DiscountFactor >= 0 && cfg.DiscountFactor <= 1) {
		problems = append(problems, fmt.Sprintf("%s.discount_factor must be in [0, 1], got %v", prefix, cfg.DiscountFactor))
	}
	switch cfg.TieBreak {
	case "", TieBreakFirst, TieBreakRandom:
	default:
		problems = append(problems, fmt.Sprintf("%s.tie_break must be %q or %q, got %q", prefix, TieBreakFirst, TieBreakRandom, cfg.TieBreak))
	}

	return problems
}
