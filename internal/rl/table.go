package rl

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrIndexOutOfRange is returned for a state or action outside the table
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidDimensions is returned when a table would have no rows or columns
	ErrInvalidDimensions = errors.New("invalid table dimensions")
)

// ValueTable holds one value estimate per (state, action) pair. Rows are
// states, columns are actions. The shape is fixed at construction.
type ValueTable struct {
	values   *mat.Dense
	nstates  int
	nactions int
}

// NewValueTable creates a zero-initialised nstates x nactions table
func NewValueTable(nstates, nactions int) (*ValueTable, error) {
	if nstates <= 0 || nactions <= 0 {
		return nil, fmt.Errorf("%w: %d states x %d actions", ErrInvalidDimensions, nstates, nactions)
	}
	return &ValueTable{
		values:   mat.NewDense(nstates, nactions, nil),
		nstates:  nstates,
		nactions: nactions,
	}, nil
}

// Dims returns the number of states and actions
func (t *ValueTable) Dims() (nstates, nactions int) {
	return t.nstates, t.nactions
}

// Row returns a copy of the action values for state
func (t *ValueTable) Row(state int) ([]float64, error) {
	if err := t.checkState("state", state); err != nil {
		return nil, err
	}
	return mat.Row(nil, state, t.values), nil
}

// Value returns the estimate for a single (state, action) pair
func (t *ValueTable) Value(state, action int) (float64, error) {
	if err := t.checkState("state", state); err != nil {
		return 0, err
	}
	if err := t.checkAction(action); err != nil {
		return 0, err
	}
	return t.values.At(state, action), nil
}

// Update moves Q(state, action) a fraction learningRate toward the one-step
// target. The target is reward for a terminal transition and
// reward + discount * max_a Q(nextState, a) otherwise. All indices are
// checked before anything is written.
func (t *ValueTable) Update(state, action, nextState int, reward float64, terminal bool, learningRate, discount float64) error {
	if err := t.checkState("state", state); err != nil {
		return err
	}
	if err := t.checkAction(action); err != nil {
		return err
	}
	if err := t.checkState("next state", nextState); err != nil {
		return err
	}

	target := reward
	if !terminal {
		target += discount * floats.Max(t.values.RawRowView(nextState))
	}

	current := t.values.At(state, action)
	t.values.Set(state, action, current+learningRate*(target-current))
	return nil
}

// Snapshot returns a deep copy of the table as rows of action values
func (t *ValueTable) Snapshot() [][]float64 {
	rows := make([][]float64, t.nstates)
	for s := range rows {
		rows[s] = mat.Row(nil, s, t.values)
	}
	return rows
}

// Mean returns the average estimate over all entries
func (t *ValueTable) Mean() float64 {
	return mat.Sum(t.values) / float64(t.nstates*t.nactions)
}

// HasNaN reports whether any entry has become NaN
func (t *ValueTable) HasNaN() bool {
	for s := 0; s < t.nstates; s++ {
		for _, v := range t.values.RawRowView(s) {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

func (t *ValueTable) checkState(name string, state int) error {
	if state < 0 || state >= t.nstates {
		return fmt.Errorf("%w: %s %d not in [0, %d)", ErrIndexOutOfRange, name, state, t.nstates)
	}
	return nil
}

func (t *ValueTable) checkAction(action int) error {
	if action < 0 || action >= t.nactions {
		return fmt.Errorf("%w: action %d not in [0, %d)", ErrIndexOutOfRange, action, t.nactions)
	}
	return nil
}
