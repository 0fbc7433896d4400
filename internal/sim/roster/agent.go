package roster

import (
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
)

type Kind uint8

const (
	KindPrimary Kind = iota + 1
	KindClone
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "PRIMARY"
	case KindClone:
		return "CLONE"
	default:
		return "UNKNOWN"
	}
}

type State uint8

const (
	StateActive State = iota + 1
	StateTransitioning
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateTransitioning:
		return "TRANSITIONING"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

type Cause uint8

const (
	CauseFall Cause = iota + 1
	// CauseLaserFreeze leaves the agent in-world and frozen until it fades.
	CauseLaserFreeze
	CauseInstantKill
	CauseGoalReached
)

func (c Cause) String() string {
	switch c {
	case CauseFall:
		return protocol.CauseFall
	case CauseLaserFreeze:
		return protocol.CauseLaserFreeze
	case CauseInstantKill:
		return protocol.CauseInstantKill
	case CauseGoalReached:
		return protocol.CauseGoalReached
	default:
		return "UNKNOWN"
	}
}

// ParseCause maps a wire cause to a Cause.
func ParseCause(s string) (Cause, bool) {
	switch s {
	case protocol.CauseFall:
		return CauseFall, true
	case protocol.CauseLaserFreeze:
		return CauseLaserFreeze, true
	case protocol.CauseInstantKill:
		return CauseInstantKill, true
	case protocol.CauseGoalReached:
		return CauseGoalReached, true
	default:
		return 0, false
	}
}

// IsLoss reports whether removal by this cause leaves a clone owed.
func (c Cause) IsLoss() bool { return c != CauseGoalReached }

// Transition is the in-flight death/freeze/goal descriptor of an agent.
type Transition struct {
	Cause    Cause
	Elapsed  time.Duration
	Duration time.Duration
}

func (t *Transition) Remaining() time.Duration {
	if t == nil {
		return 0
	}
	if r := t.Duration - t.Elapsed; r > 0 {
		return r
	}
	return 0
}

type Agent struct {
	ID    string
	Kind  Kind
	State State

	// Pos mirrors the physics body; the roster never integrates motion.
	Pos geom.Vec3

	Transition *Transition

	// Diagnostics only.
	SourceID string
	SpawnPad string
	BornTick uint64
}

// NonFrozen reports whether the agent still takes part in play.
func (a *Agent) NonFrozen() bool { return a != nil && a.State == StateActive }
