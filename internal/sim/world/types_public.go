package world

import (
	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/lifecycle"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/transition"
)

// SceneLoader performs the actual level loads. It is told what to load and
// acknowledges through OnLoadCompleted (or a LOAD_COMPLETED event).
type SceneLoader = transition.SceneLoader

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type LifecycleLogger interface {
	WriteLifecycle(entry LifecycleEntry) error
}

// TickLogEntry is everything needed to replay a tick: the events applied, in
// order, and the resulting digest.
type TickLogEntry struct {
	Tick       uint64              `json:"tick"`
	LevelIndex int                 `json:"level_index"`
	DtMicros   int64               `json:"dt_us"`
	Events     []protocol.EventMsg `json:"events,omitempty"`
	Digest     string              `json:"digest"`
}

// Lifecycle entry kinds.
const (
	EntrySpawn     = "SPAWN"
	EntryBegin     = "BEGIN"
	EntryRemove    = "REMOVE"
	EntryPromote   = "PROMOTE"
	EntryPadsReset = "PADS_RESET"
	EntryReload    = "RELOAD"
	EntryAdvance   = "ADVANCE"
	EntryRace      = "RELOAD_RACE"
	EntryPlate     = "PLATE_PRESSED"
	EntryBarrier   = "BARRIER_OPENED"
	EntryLoad      = "LOAD"
	EntryReject    = "REJECT"
)

type LifecycleEntry struct {
	Tick       uint64     `json:"tick"`
	LevelIndex int        `json:"level_index"`
	Kind       string     `json:"kind"`
	AgentID    string     `json:"agent_id,omitempty"`
	AgentKind  string     `json:"agent_kind,omitempty"`
	Cause      string     `json:"cause,omitempty"`
	PadID      string     `json:"pad_id,omitempty"`
	Pos        [3]float64 `json:"pos"`
	Code       string     `json:"code,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// EventEnvelope tags an inbound event with the session that sent it, so
// rejections can be reported back. SessionID is empty for local callers.
type EventEnvelope struct {
	SessionID string
	Event     protocol.EventMsg
}

// Client roles.
const (
	RoleBridge   = "bridge"
	RoleObserver = "observer"
)

type JoinRequest struct {
	Role       string
	ClientName string
	Out        chan []byte
	Resp       chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	// Control carries SCENE requests to bridge clients. It holds only the
	// latest request and is never shared with FRAMEs, so a slow client can
	// lose frames but not a scene request. Nil for observers.
	Control <-chan []byte
}

// StepResult summarizes one tick for callers driving the world directly.
type StepResult struct {
	Tick      uint64
	Digest    string
	Spawned   []string
	Completed []lifecycle.Completed
	Promoted  string
	PadsReset bool
	// ReloadRequested and AdvanceRequested report SceneLoader calls made
	// during this tick.
	ReloadRequested  bool
	AdvanceRequested bool
	AdvanceIndex     int
	Target           geom.Vec3
	Zoom             float64
	Rejections       []error
}
