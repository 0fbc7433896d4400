package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// MaxQueue bounds the server's outbound buffer for this session.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Tick            uint64      `json:"tick"`
	Level           LevelParams `json:"level"`
}

type LevelParams struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	RunID      string    `json:"run_id"`
	TickRateHz int       `json:"tick_rate_hz"`
	PrimaryID  string    `json:"primary_id"`
	Pads       []PadView `json:"pads"`
}

// Event kinds carried by EventMsg.
const (
	EventHazard        = "HAZARD"
	EventPad           = "PAD"
	EventGoal          = "GOAL"
	EventCollision     = "COLLISION"
	EventMove          = "MOVE"
	EventLoadCompleted = "LOAD_COMPLETED"
)

// Hazard causes on the wire.
const (
	CauseFall        = "FALL"
	CauseLaserFreeze = "LASER_FREEZE"
	CauseInstantKill = "INSTANT_KILL"
	CauseGoalReached = "GOAL_REACHED"
)

// EVENT (client -> server). Which fields are meaningful depends on Kind.
type EventMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Kind            string     `json:"kind"`
	AgentID         string     `json:"agent_id,omitempty"`
	PadID           string     `json:"pad_id,omitempty"`
	OtherID         string     `json:"other_id,omitempty"`
	Tag             string     `json:"tag,omitempty"`
	Cause           string     `json:"cause,omitempty"`
	Pos             [3]float64 `json:"pos,omitempty"`
	LevelIndex      int        `json:"level_index,omitempty"`
}

// FRAME (server -> client), once per tick.
type FrameMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	LevelIndex      int         `json:"level_index"`
	Phase           string      `json:"phase"`
	Target          TargetView  `json:"target"`
	Agents          []AgentView `json:"agents"`
	Pads            []PadView   `json:"pads"`
	Budget          BudgetView  `json:"budget"`
	Plates          []PlateView `json:"plates,omitempty"`
	Digest          string      `json:"digest,omitempty"`
}

type TargetView struct {
	Pos         [3]float64 `json:"pos"`
	Zoom        float64    `json:"zoom"`
	Valid       bool       `json:"valid"`
	PrimaryID   string     `json:"primary_id,omitempty"`
	Secondaries []string   `json:"secondaries,omitempty"`
}

type AgentView struct {
	ID    string     `json:"id"`
	Kind  string     `json:"kind"`
	State string     `json:"state"`
	Pos   [3]float64 `json:"pos"`
	Cause string     `json:"cause,omitempty"`
	// RemainingMs is the time left in the agent's transition.
	RemainingMs int64 `json:"remaining_ms,omitempty"`
}

type PadView struct {
	ID        string     `json:"id"`
	Index     int        `json:"index"`
	Pos       [3]float64 `json:"pos"`
	Activated bool       `json:"activated"`
}

// PlateView reports a pressure plate and the fade of its barrier.
type PlateView struct {
	ID      string  `json:"id"`
	Target  string  `json:"target"`
	Used    bool    `json:"used"`
	Open    bool    `json:"open"`
	Opacity float64 `json:"opacity"`
}

type BudgetView struct {
	MaxClones      int  `json:"max_clones"`
	MissingClones  int  `json:"missing_clones"`
	CloningAllowed bool `json:"cloning_allowed"`
}

// Scene requests (server -> client).
const (
	SceneReload  = "RELOAD"
	SceneAdvance = "ADVANCE"
)

// SCENE (server -> client)
type SceneMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Request         string `json:"request"`
	NextIndex       int    `json:"next_index,omitempty"`
}

// REJECT (server -> client): diagnostics for an event the world declined.
type RejectMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
