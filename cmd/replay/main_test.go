package main

import (
	"testing"

	persistlog "github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/log"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/tuning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

func ev(kind, agent string, f func(*protocol.EventMsg)) protocol.EventMsg {
	m := protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Kind: kind, AgentID: agent}
	if f != nil {
		f(&m)
	}
	return m
}

// record runs a short session with auto-acked loads and returns its dir.
func record(t *testing.T, set *levels.Set, tune tuning.Tuning) string {
	t.Helper()
	dir := t.TempDir()
	cfg := world.ConfigFromTuning(tune)
	cfg.AutoAckLoads = true
	w, err := world.New(cfg, set, nil, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	dt := w.TickInterval()
	w.Step(dt, []protocol.EventMsg{ev(protocol.EventPad, "P1", func(m *protocol.EventMsg) { m.PadID = "pad_b" })})
	w.Step(dt, []protocol.EventMsg{ev(protocol.EventMove, "C1", func(m *protocol.EventMsg) { m.Pos = [3]float64{6, 0.5, 1} })})
	w.Step(dt, []protocol.EventMsg{ev(protocol.EventHazard, "C1", func(m *protocol.EventMsg) { m.Cause = protocol.CauseFall })})
	w.Step(dt, []protocol.EventMsg{ev(protocol.EventHazard, "P1", func(m *protocol.EventMsg) { m.Cause = protocol.CauseInstantKill })})
	for i := 0; i < 80; i++ {
		w.Step(dt, nil)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return dir
}

func loadConfigs(t *testing.T) (*levels.Set, tuning.Tuning) {
	t.Helper()
	set, err := levels.LoadSet("../../configs")
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	tune, err := tuning.Load("../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	return set, tune
}

func TestReplayMatchesRecordedDigests(t *testing.T) {
	set, tune := loadConfigs(t)
	dir := record(t, set, tune)

	w, err := newReplayWorld(tune, set, 0)
	if err != nil {
		t.Fatalf("replay world: %v", err)
	}
	checked, err := replaySession(w, dir, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 84 {
		t.Fatalf("checked=%d want 84", checked)
	}
	if w.CurrentTick() != 84 {
		t.Fatalf("final tick=%d", w.CurrentTick())
	}
}

func TestReplayStopsAtToTick(t *testing.T) {
	set, tune := loadConfigs(t)
	dir := record(t, set, tune)

	w, err := newReplayWorld(tune, set, 0)
	if err != nil {
		t.Fatalf("replay world: %v", err)
	}
	checked, err := replaySession(w, dir, 2, 9)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 8 || w.CurrentTick() != 10 {
		t.Fatalf("checked=%d tick=%d", checked, w.CurrentTick())
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	set, tune := loadConfigs(t)
	dir := record(t, set, tune)

	// A different start level diverges on the very first digest.
	w, err := newReplayWorld(tune, set, 1)
	if err != nil {
		t.Fatalf("replay world: %v", err)
	}
	if _, err := replaySession(w, dir, 0, 0); err == nil {
		t.Fatalf("expected a digest mismatch")
	}
}
