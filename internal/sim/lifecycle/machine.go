// Package lifecycle drives agents through Active -> Transitioning -> Removed.
// Timed transitions are countdown state advanced by Tick; nothing blocks.
package lifecycle

import (
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

type Durations struct {
	Fall        time.Duration
	LaserFreeze time.Duration
	InstantKill time.Duration
	GoalReached time.Duration
}

func DefaultDurations() Durations {
	return Durations{
		Fall:        time.Second,
		LaserFreeze: 1500 * time.Millisecond,
		InstantKill: 250 * time.Millisecond,
	}
}

func (d Durations) For(c roster.Cause) time.Duration {
	switch c {
	case roster.CauseFall:
		return d.Fall
	case roster.CauseLaserFreeze:
		return d.LaserFreeze
	case roster.CauseInstantKill:
		return d.InstantKill
	default:
		return d.GoalReached
	}
}

// Completed describes an agent whose transition finished and who has been
// evicted from the roster.
type Completed struct {
	AgentID string
	Kind    roster.Kind
	Cause   roster.Cause
	Pos     geom.Vec3
}

type Machine struct {
	reg       *roster.Registry
	durations Durations
}

func New(reg *roster.Registry, d Durations) *Machine {
	return &Machine{reg: reg, durations: d}
}

// Begin starts a timed transition. An agent carries at most one in-flight
// transition; a second start is rejected with TransitionInProgress.
func (m *Machine) Begin(id string, cause roster.Cause) error {
	a, err := m.startable("begin", id)
	if err != nil {
		return err
	}
	a.State = roster.StateTransitioning
	a.Transition = &roster.Transition{Cause: cause, Duration: m.durations.For(cause)}
	return nil
}

// Remove evicts an agent immediately (goal reached), under the same
// at-most-one-transition rule as Begin.
func (m *Machine) Remove(id string, cause roster.Cause) (Completed, error) {
	a, err := m.startable("remove", id)
	if err != nil {
		return Completed{}, err
	}
	a.Transition = &roster.Transition{Cause: cause}
	return m.finish(a), nil
}

func (m *Machine) startable(op, id string) (*roster.Agent, error) {
	a := m.reg.Get(id)
	if a == nil || a.State == roster.StateRemoved {
		return nil, fault.InvalidAgent(op, id)
	}
	if a.Transition != nil || a.State == roster.StateTransitioning {
		return nil, fault.TransitionInProgress(op, id)
	}
	return a, nil
}

// Tick advances every in-flight transition by dt, in registration order, and
// returns the ones that completed this tick.
func (m *Machine) Tick(dt time.Duration) []Completed {
	var done []Completed
	for _, a := range m.reg.Agents() {
		tr := a.Transition
		if tr == nil {
			continue
		}
		tr.Elapsed += dt
		if tr.Elapsed < tr.Duration {
			continue
		}
		done = append(done, m.finish(a))
	}
	return done
}

func (m *Machine) finish(a *roster.Agent) Completed {
	c := Completed{AgentID: a.ID, Kind: a.Kind, Cause: a.Transition.Cause, Pos: a.Pos}
	a.State = roster.StateRemoved
	m.reg.Unregister(a.ID)
	return c
}

func (m *Machine) InFlight() int {
	n := 0
	for _, a := range m.reg.Agents() {
		if a.Transition != nil {
			n++
		}
	}
	return n
}
