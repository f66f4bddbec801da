package service

import (
	"sync"
	"sync/atomic"
	"time"

	"tabular-rl-server/internal/rl"
)

// session hosts one agent. mu serialises every RPC touching the agent, so
// the agent itself never sees concurrent calls.
type session struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	agent    *rl.Agent
	selector *rl.Selector
	closed   bool

	// lastUsed is read by the janitor without taking mu
	lastUsed atomic.Int64
}

func newSession(id string, agent *rl.Agent, selector *rl.Selector, now time.Time) *session {
	s := &session{
		id:        id,
		createdAt: now,
		agent:     agent,
		selector:  selector,
	}
	s.touch(now)
	return s
}

func (s *session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

// close marks the session dead for callers already waiting on mu
func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
