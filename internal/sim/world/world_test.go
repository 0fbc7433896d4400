package world

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/transition"
)

const twoPadLevel = `
name: two_pads
spawn: [0, 1, 0]
pads:
  - { id: pad_a, index: 0, pos: [0, 0, 0] }
  - { id: pad_b, index: 1, pos: [6, 0, 0] }
goal: { id: goal, pos: [20, 0, 0] }
`

const laserLevel = `
name: laser
spawn: [0, 0, 0]
pads:
  - { id: pad_a, index: 0, pos: [0, 0, 0] }
  - { id: pad_b, index: 1, pos: [0, 0, 10] }
goal: { id: goal, pos: [30, 0, 0] }
lasers:
  - { id: beam, origin: [10, 0, -5], dir: [0, 0, 1], max_distance: 10, kind: freeze }
`

type sceneRecorder struct {
	reloads  int
	advances []int
}

func (r *sceneRecorder) RequestReload()          { r.reloads++ }
func (r *sceneRecorder) RequestAdvance(next int) { r.advances = append(r.advances, next) }

func testSet(t *testing.T, docs ...string) *levels.Set {
	t.Helper()
	set := &levels.Set{}
	for i, raw := range docs {
		l, err := levels.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("parse level %d: %v", i, err)
		}
		l.Index = i
		set.Levels = append(set.Levels, l)
	}
	return set
}

func newTestWorld(t *testing.T, cfg Config, docs ...string) (*World, *sceneRecorder) {
	t.Helper()
	rec := &sceneRecorder{}
	w, err := New(cfg, testSet(t, docs...), rec, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w, rec
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickRateHz = 50
	return cfg
}

func ev(kind string, f func(*protocol.EventMsg)) protocol.EventMsg {
	m := protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Kind: kind}
	if f != nil {
		f(&m)
	}
	return m
}

func padEv(pad, agent string) protocol.EventMsg {
	return ev(protocol.EventPad, func(m *protocol.EventMsg) { m.PadID = pad; m.AgentID = agent })
}

func hazardEv(agent, cause string) protocol.EventMsg {
	return ev(protocol.EventHazard, func(m *protocol.EventMsg) { m.AgentID = agent; m.Cause = cause })
}

func goalEv(agent string) protocol.EventMsg {
	return ev(protocol.EventGoal, func(m *protocol.EventMsg) { m.AgentID = agent })
}

func moveEv(agent string, x, y, z float64) protocol.EventMsg {
	return ev(protocol.EventMove, func(m *protocol.EventMsg) { m.AgentID = agent; m.Pos = [3]float64{x, y, z} })
}

// stepFor runs empty ticks covering d.
func stepFor(w *World, d time.Duration) {
	dt := w.TickInterval()
	for elapsed := time.Duration(0); elapsed < d; elapsed += dt {
		w.Step(dt, nil)
	}
}

func TestWorld_StartsWithSinglePrimary(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	agents := w.Roster()
	if len(agents) != 1 || agents[0].ID != "P1" || agents[0].Kind != roster.KindPrimary {
		t.Fatalf("unexpected roster: %+v", agents)
	}
	if w.ActiveCount() != 1 || w.RunID() == "" {
		t.Fatalf("active=%d run=%q", w.ActiveCount(), w.RunID())
	}
	if pos, _ := w.CurrentTarget(); pos != geom.V(0, 1, 0) {
		t.Fatalf("camera should start on the spawn, got %v", pos)
	}
}

func TestWorld_FirstCloningTwoPads(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)

	res := w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})
	if len(res.Spawned) != 1 || res.Spawned[0] != "C1" {
		t.Fatalf("expected C1 spawned, got %+v", res.Spawned)
	}
	if w.ActiveCount() != 2 {
		t.Fatalf("active=%d want 2", w.ActiveCount())
	}
	b := w.Budget()
	if b.CloningAllowed || b.MaxClones != 1 {
		t.Fatalf("budget after batch: %+v", b)
	}
	for _, a := range w.Roster() {
		if a.ID == "C1" && a.Pos != geom.V(6, 0, 0) {
			t.Fatalf("clone should stand on pad_b, got %v", a.Pos)
		}
	}

	// A second trigger is a silent no-op while cloning is disallowed.
	res = w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})
	if len(res.Spawned) != 0 || len(res.Rejections) != 0 {
		t.Fatalf("expected silent no-op, got %+v", res)
	}

	// Camera frames both agents after re-targeting settles.
	_, zoom := w.CurrentTarget()
	if zoom <= DefaultConfig().Camera.BaseZoom {
		t.Fatalf("zoom should widen to frame the clone, got %v", zoom)
	}
}

func TestWorld_LaserFreezeRetargetsCameraAndReArmsPads(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})

	res := w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseLaserFreeze)})
	if w.ActiveCount() != 1 {
		t.Fatalf("frozen primary should not count as active")
	}
	if !res.PadsReset || !w.Budget().CloningAllowed {
		t.Fatalf("cloning should be allowed again with one agent left")
	}
	pos, _ := w.CurrentTarget()
	if pos != geom.V(6, 0, 0) {
		t.Fatalf("camera should follow the clone, got %v", pos)
	}

	stepFor(w, 1500*time.Millisecond)
	agents := w.Roster()
	if len(agents) != 1 || agents[0].ID != "C1" || agents[0].Kind != roster.KindPrimary {
		t.Fatalf("lone clone should be promoted, roster=%+v", agents)
	}
	if got := w.Budget().MissingClones; got != 1 {
		t.Fatalf("missing clones=%d want 1", got)
	}
	if m := w.Metrics(); m.PromotedTotal != 1 || m.CompletedTotal != 1 {
		t.Fatalf("metrics: %+v", m)
	}
}

func TestWorld_SameTickDoubleFallReloadsOnce(t *testing.T) {
	w, rec := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})

	w.Step(w.TickInterval(), []protocol.EventMsg{
		hazardEv("P1", protocol.CauseFall),
		hazardEv("C1", protocol.CauseFall),
	})
	stepFor(w, 2*time.Second)

	if rec.reloads != 1 {
		t.Fatalf("reloads=%d want exactly 1", rec.reloads)
	}
	if w.Phase() != transition.PhaseReloading {
		t.Fatalf("phase=%v", w.Phase())
	}
	// Two losses emptied the roster in one tick: one request, one race.
	if m := w.Metrics(); m.ReloadTotal != 1 || m.ReloadRaces != 1 {
		t.Fatalf("reload metrics: %+v", m)
	}
}

type memLifecycleLog struct{ entries []LifecycleEntry }

func (m *memLifecycleLog) WriteLifecycle(e LifecycleEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestWorld_ReloadRaceIsLogged(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	ll := &memLifecycleLog{}
	w.SetLifecycleLogger(ll)
	w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})
	w.Step(w.TickInterval(), []protocol.EventMsg{
		hazardEv("P1", protocol.CauseInstantKill),
		hazardEv("C1", protocol.CauseInstantKill),
	})
	stepFor(w, time.Second)

	races := 0
	for _, e := range ll.entries {
		if e.Kind == EntryRace {
			races++
			if e.Code != protocol.ErrReloadRace {
				t.Fatalf("race entry code=%q", e.Code)
			}
		}
	}
	if races != 1 {
		t.Fatalf("race entries=%d want 1", races)
	}
}

func TestWorld_FrameShowsTransitionRemaining(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseFall)})
	f := w.Frame(w.CurrentTick(), "")
	if len(f.Agents) != 1 || f.Agents[0].Cause != protocol.CauseFall {
		t.Fatalf("unexpected agents: %+v", f.Agents)
	}
	// Fall lasts 1s and one 20ms tick has elapsed.
	if got := f.Agents[0].RemainingMs; got != 980 {
		t.Fatalf("remaining=%dms want 980", got)
	}
}

func TestWorld_WaitingForAckIsNotARace(t *testing.T) {
	w, rec := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseInstantKill)})
	stepFor(w, 2*time.Second)
	if rec.reloads != 1 {
		t.Fatalf("reloads=%d want 1", rec.reloads)
	}
	if m := w.Metrics(); m.ReloadRaces != 0 {
		t.Fatalf("reload races=%d want 0", m.ReloadRaces)
	}
}

func TestWorld_SceneReachesBridgeWithFullQueue(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	out := make(chan []byte, 1)
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{Role: RoleBridge, ClientName: "engine", Out: out, Resp: resp})
	control := (<-resp).Control
	if control == nil {
		t.Fatalf("bridge clients need a control channel")
	}

	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseInstantKill)})
	for i := 0; i < 20; i++ {
		w.Step(w.TickInterval(), nil)
	}
	if w.Phase() != transition.PhaseReloading {
		t.Fatalf("phase=%v", w.Phase())
	}

	select {
	case b := <-control:
		var scene protocol.SceneMsg
		if err := json.Unmarshal(b, &scene); err != nil || scene.Type != protocol.TypeScene || scene.Request != protocol.SceneReload {
			t.Fatalf("unexpected control message %s (%v)", b, err)
		}
	default:
		t.Fatalf("reload request lost")
	}
	if len(out) != 1 {
		t.Fatalf("frame queue should still hold the latest frame")
	}
}

func TestWorld_LateBridgeHearsPendingScene(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseInstantKill)})
	stepFor(w, 500*time.Millisecond)

	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{Role: RoleBridge, Out: make(chan []byte, 4), Resp: resp})
	select {
	case b := <-(<-resp).Control:
		var scene protocol.SceneMsg
		if err := json.Unmarshal(b, &scene); err != nil || scene.Request != protocol.SceneReload {
			t.Fatalf("unexpected control message %s (%v)", b, err)
		}
	default:
		t.Fatalf("late bridge should get the pending reload")
	}

	obs := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{Role: RoleObserver, Out: make(chan []byte, 4), Resp: obs})
	if (<-obs).Control != nil {
		t.Fatalf("observers have no control channel")
	}
}

func TestWorld_RecloneAfterLossUsesLowestPad(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})
	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("C1", protocol.CauseFall)})
	stepFor(w, time.Second+w.TickInterval())

	if got := w.Budget(); got.MissingClones != 1 || !got.CloningAllowed {
		t.Fatalf("budget after loss: %+v", got)
	}
	res := w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_b", "P1")})
	if len(res.Spawned) != 1 {
		t.Fatalf("expected one clone, got %+v (rejections %v)", res.Spawned, res.Rejections)
	}
	for _, a := range w.Roster() {
		if a.ID == res.Spawned[0] && a.SpawnPad != "pad_a" {
			t.Fatalf("clone should spawn at pad index 0, got %s", a.SpawnPad)
		}
	}
	if w.Budget().MissingClones != 0 {
		t.Fatalf("owed clone should be settled")
	}
}

func TestWorld_GoalAdvancesInsteadOfReloading(t *testing.T) {
	w, rec := newTestWorld(t, testConfig(), twoPadLevel, laserLevel)

	res := w.Step(w.TickInterval(), []protocol.EventMsg{goalEv("P1")})
	if len(res.Completed) != 1 || res.Completed[0].Cause != roster.CauseGoalReached {
		t.Fatalf("goal should remove immediately: %+v", res.Completed)
	}
	if w.Phase() != transition.PhaseAdvancing {
		t.Fatalf("phase=%v", w.Phase())
	}
	stepFor(w, 1500*time.Millisecond)
	if rec.reloads != 0 {
		t.Fatalf("goal must not trigger a reload")
	}
	if len(rec.advances) != 1 || rec.advances[0] != 1 {
		t.Fatalf("advances=%v want [1]", rec.advances)
	}
	if w.Budget().MissingClones != 0 {
		t.Fatalf("goal removal owes no clone")
	}
}

func TestWorld_GoalDuringTransitionRejected(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	res := w.Step(w.TickInterval(), []protocol.EventMsg{
		hazardEv("P1", protocol.CauseFall),
		goalEv("P1"),
	})
	if len(res.Rejections) != 1 {
		t.Fatalf("expected one rejection, got %v", res.Rejections)
	}
	if got := w.Metrics().Rejections[protocol.ErrTransitionInProgress]; got != 1 {
		t.Fatalf("rejection not counted: %v", w.Metrics().Rejections)
	}
}

func TestWorld_AutoAckReloadRestoresLevel(t *testing.T) {
	cfg := testConfig()
	cfg.AutoAckLoads = true
	w, rec := newTestWorld(t, cfg, twoPadLevel)
	firstRun := w.RunID()

	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("P1", protocol.CauseInstantKill)})
	stepFor(w, 300*time.Millisecond)
	if rec.reloads != 1 {
		t.Fatalf("reloads=%d", rec.reloads)
	}
	w.Step(w.TickInterval(), nil)
	if w.Phase() != transition.PhasePlaying || w.ActiveCount() != 1 {
		t.Fatalf("level should be reloaded: phase=%v active=%d", w.Phase(), w.ActiveCount())
	}
	if w.RunID() == firstRun {
		t.Fatalf("reload should start a new run")
	}
	if !w.Budget().CloningAllowed || w.Budget().HasCloned {
		t.Fatalf("budget should be fresh: %+v", w.Budget())
	}
}

func TestWorld_LaserEmitterFreezesAgentInBeam(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), laserLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{moveEv("P1", 10, 0, 0)})
	agents := w.Roster()
	if len(agents) != 1 || agents[0].State != roster.StateTransitioning || agents[0].Transition.Cause != roster.CauseLaserFreeze {
		t.Fatalf("agent in beam should freeze: %+v", agents[0])
	}
}

func TestWorld_CollisionRouting(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	res := w.Step(w.TickInterval(), []protocol.EventMsg{
		ev(protocol.EventCollision, func(m *protocol.EventMsg) { m.AgentID = "P1"; m.OtherID = "pad_a"; m.Tag = TagClonePad }),
	})
	if len(res.Spawned) != 1 {
		t.Fatalf("ClonePad collision should clone, got %+v", res)
	}
	if err := w.OnCollision("C1", "", TagBullet); err != nil {
		t.Fatalf("bullet collision: %v", err)
	}
	if err := w.OnCollision("C1", "", "Decoration"); err != nil {
		t.Fatalf("unknown tag should be ignored: %v", err)
	}
}

func TestWorld_UnknownAgentRejected(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	w.Step(w.TickInterval(), []protocol.EventMsg{hazardEv("ghost", protocol.CauseFall)})
	if got := w.Metrics().Rejections[protocol.ErrInvalidAgentReference]; got != 1 {
		t.Fatalf("rejections=%v", w.Metrics().Rejections)
	}
	if w.ActiveCount() != 1 {
		t.Fatalf("rejection must not change state")
	}
}

func TestWorld_DeterministicDigests(t *testing.T) {
	script := [][]protocol.EventMsg{
		{padEv("pad_a", "P1")},
		{moveEv("C1", 3, 0, 0)},
		{hazardEv("P1", protocol.CauseLaserFreeze)},
		nil,
		{hazardEv("C1", protocol.CauseFall)},
	}
	run := func() []string {
		w, _ := newTestWorld(t, testConfig(), twoPadLevel)
		var out []string
		for _, evs := range script {
			_, d := w.StepOnce(evs)
			out = append(out, d)
		}
		for i := 0; i < 100; i++ {
			_, d := w.StepOnce(nil)
			out = append(out, d)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest mismatch at tick %d", i)
		}
	}
}

type memTickLog struct{ entries []TickLogEntry }

func (m *memTickLog) WriteTick(e TickLogEntry) error { m.entries = append(m.entries, e); return nil }

func TestWorld_TickLogRecordsEvents(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), twoPadLevel)
	tl := &memTickLog{}
	w.SetTickLogger(tl)
	w.Step(w.TickInterval(), []protocol.EventMsg{padEv("pad_a", "P1")})
	w.Step(w.TickInterval(), nil)
	if len(tl.entries) != 2 || len(tl.entries[0].Events) != 1 || tl.entries[1].Tick != 1 {
		t.Fatalf("unexpected tick log: %+v", tl.entries)
	}
	if tl.entries[0].Digest == "" || tl.entries[0].DtMicros != 20000 {
		t.Fatalf("entry missing digest or dt: %+v", tl.entries[0])
	}
}

const gatedLevel = `
name: gated
spawn: [10, 0, 0]
pads:
  - { id: pad_a, index: 0, pos: [0, 0, -20] }
goal: { id: goal, pos: [30, 0, 0] }
walls:
  - { id: gate, min: [9, -1, -3], max: [11, 1, -2] }
lasers:
  - { id: beam, origin: [10, 0, -5], dir: [0, 0, 1], max_distance: 10, kind: instant }
plates:
  - { id: gate_plate, pos: [0, 0, 5], target: gate }
`

func TestWorld_PressurePlateOpensBarrierAfterFade(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), gatedLevel)
	ll := &memLifecycleLog{}
	w.SetLifecycleLogger(ll)

	w.Step(w.TickInterval(), nil)
	if w.ActiveCount() != 1 {
		t.Fatalf("closed gate should shield the spawn")
	}

	w.Step(w.TickInterval(), []protocol.EventMsg{moveEv("P1", 0, 0, 5)})
	f := w.Frame(w.CurrentTick(), "")
	if len(f.Plates) != 1 || !f.Plates[0].Used || f.Plates[0].Open {
		t.Fatalf("plate should be used and fading: %+v", f.Plates)
	}

	w.Step(w.TickInterval(), []protocol.EventMsg{moveEv("P1", 10, 0, 0)})
	if w.ActiveCount() != 1 {
		t.Fatalf("gate still blocks while fading")
	}

	stepFor(w, 1500*time.Millisecond)
	f = w.Frame(w.CurrentTick(), "")
	if !f.Plates[0].Open || f.Plates[0].Opacity != 0 {
		t.Fatalf("gate should be open: %+v", f.Plates[0])
	}
	agents := w.Roster()
	if len(agents) != 1 || agents[0].State != roster.StateTransitioning || agents[0].Transition.Cause != roster.CauseInstantKill {
		t.Fatalf("beam should reach P1 once the gate is gone: %+v", agents)
	}

	var pressed, opened int
	for _, e := range ll.entries {
		switch e.Kind {
		case EntryPlate:
			pressed++
		case EntryBarrier:
			opened++
		}
	}
	if pressed != 1 || opened != 1 {
		t.Fatalf("lifecycle entries pressed=%d opened=%d", pressed, opened)
	}
}

func TestWorld_PlateCollisionRouting(t *testing.T) {
	w, _ := newTestWorld(t, testConfig(), gatedLevel)
	if err := w.OnCollision("P1", "nope", TagPlate); err == nil {
		t.Fatalf("unknown plate should be rejected")
	}
	if err := w.OnCollision("P1", "gate_plate", TagPlate); err != nil {
		t.Fatalf("plate collision: %v", err)
	}
	if p := w.hazards.Plates()[0]; !p.Used() {
		t.Fatalf("collision should press the plate")
	}
	if w.rejections[protocol.ErrInvalidAgentReference] != 1 {
		t.Fatalf("rejections=%v", w.rejections)
	}
}
