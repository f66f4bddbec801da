package service

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tabular-rl-server/internal/rl"
	"tabular-rl-server/pkg/config"
)

var (
	// ErrAgentNotFound is returned for an unknown, deleted or evicted agent id
	ErrAgentNotFound = errors.New("agent not found")

	// ErrTooManyAgents is returned when sessions.max_agents is reached
	ErrTooManyAgents = errors.New("agent limit reached")
)

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, rl.ErrIndexOutOfRange):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, rl.ErrInvalidDimensions):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrAgentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrTooManyAgents):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// checkFinite rejects values JSON cannot carry. Only read-only RPCs use it;
// the agent keeps whatever it learned and only the response is withheld.
func checkFinite(what string, values ...float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return status.Errorf(codes.DataLoss, "%s[%d] is %v: value estimates have diverged", what, i, v)
		}
	}
	return nil
}

// finiteOrZero returns v and true when v is finite, 0 and false otherwise.
// Mutating RPCs use it so an applied update is never reported as a failure.
func finiteOrZero(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func checkFiniteRows(what string, rows [][]float64) error {
	for s, row := range rows {
		if err := checkFinite(fmt.Sprintf("%s[%d]", what, s), row...); err != nil {
			return err
		}
	}
	return nil
}

// jsonSafeStats replaces non-finite floats with their string form
func jsonSafeStats(stats map[string]interface{}) map[string]interface{} {
	for k, v := range stats {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			stats[k] = fmt.Sprint(f)
		}
	}
	return stats
}
