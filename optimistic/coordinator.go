// Package optimistic wraps a single follow-graph mutation with an
// optimistic UI update: flip the local state immediately, run the call,
// and roll back to the exact pre-action snapshot if it fails. The
// coordinator owns only this request-scoped UI state; graph correctness
// lives entirely in the service it wraps.
package optimistic

import (
	"context"
	"sync"
)

// State is the coordinator's position in its per-invocation machine.
type State int

const (
	StateIdle State = iota
	StateApplied
	StateConfirmed
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApplied:
		return "applied"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Snapshot is the UI-local follow state a control renders: the boolean
// flag and the displayed followers count.
type Snapshot struct {
	IsFollowing    bool
	FollowersCount int32
}

// ToggleFunc is the single graph-service call the coordinator wraps,
// typically FollowGraphService.ToggleFollow bound to a user pair. It
// returns the authoritative follow state after the mutation.
type ToggleFunc func(ctx context.Context) (bool, error)

// Coordinator drives one follow control. Safe for concurrent use, though
// a UI normally serializes taps itself.
type Coordinator struct {
	mu      sync.Mutex
	state   State
	current Snapshot
	before  Snapshot
}

// NewCoordinator starts from the last confirmed server state.
func NewCoordinator(initial Snapshot) *Coordinator {
	return &Coordinator{state: StateIdle, current: initial}
}

// Snapshot returns the state a control should render right now.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the machine position of the latest invocation.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle applies the optimistic flip synchronously, then runs the
// wrapped mutation. On failure the snapshot is restored exactly as it was
// and the error is returned for user-facing reporting. On success the
// snapshot is reconciled with the authoritative result in case the
// optimistic guess was wrong (e.g. a concurrent mutation won the race).
func (c *Coordinator) Toggle(ctx context.Context, toggle ToggleFunc) error {
	c.mu.Lock()
	c.before = c.current
	c.current = flipped(c.current)
	c.state = StateApplied
	c.mu.Unlock()

	nowFollowing, err := toggle(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.current = c.before
		c.state = StateRolledBack
		return err
	}

	if nowFollowing != c.current.IsFollowing {
		c.current = reconciled(c.before, nowFollowing)
	}
	c.state = StateConfirmed
	return nil
}

func flipped(s Snapshot) Snapshot {
	if s.IsFollowing {
		s.IsFollowing = false
		if s.FollowersCount > 0 {
			s.FollowersCount--
		}
		return s
	}
	s.IsFollowing = true
	s.FollowersCount++
	return s
}

// reconciled rebuilds the snapshot from the pre-action state and the
// authoritative result.
func reconciled(before Snapshot, nowFollowing bool) Snapshot {
	s := before
	switch {
	case nowFollowing && !before.IsFollowing:
		s.FollowersCount++
	case !nowFollowing && before.IsFollowing:
		if s.FollowersCount > 0 {
			s.FollowersCount--
		}
	}
	s.IsFollowing = nowFollowing
	return s
}
