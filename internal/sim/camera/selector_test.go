package camera

import (
	"math"
	"testing"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func twoAgents(t *testing.T) *roster.Registry {
	t.Helper()
	r := roster.NewRegistry()
	if err := r.Register(&roster.Agent{ID: "P1", Kind: roster.KindPrimary, Pos: geom.V(0, 0, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&roster.Agent{ID: "C1", Kind: roster.KindClone, Pos: geom.V(4, 0, 0)}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSelectorFramesPrimaryAndClones(t *testing.T) {
	r := twoAgents(t)
	s := New(r, DefaultConfig())

	s.Update() // elects P1
	s.Update() // picks up C1 as secondary
	snap := s.Snapshot()
	if !snap.Valid || snap.PrimaryID != "P1" || len(snap.Secondaries) != 1 || snap.Secondaries[0] != "C1" {
		t.Fatalf("unexpected target: %+v", snap)
	}
	pos, zoom := s.CurrentTarget()
	if pos != geom.V(2, 0, 0) {
		t.Fatalf("pos=%v want midpoint", pos)
	}
	if !near(zoom, 5+4*1.5) {
		t.Fatalf("zoom=%v want 11", zoom)
	}
}

func TestSelectorReelectsOnFreeze(t *testing.T) {
	r := twoAgents(t)
	s := New(r, DefaultConfig())
	s.Update()
	s.Update()

	r.Get("P1").State = roster.StateTransitioning
	s.Update()
	snap := s.Snapshot()
	if snap.PrimaryID != "C1" || len(snap.Secondaries) != 0 {
		t.Fatalf("camera should follow the clone alone, got %+v", snap)
	}
	pos, zoom := s.CurrentTarget()
	if pos != geom.V(4, 0, 0) || !near(zoom, 5) {
		t.Fatalf("pos=%v zoom=%v", pos, zoom)
	}
}

func TestSelectorHoldsLastTargetWhenEmpty(t *testing.T) {
	r := twoAgents(t)
	s := New(r, DefaultConfig())
	s.Update()
	s.Update()
	wantPos, wantZoom := s.CurrentTarget()

	r.Reset()
	s.Update()
	pos, zoom := s.CurrentTarget()
	if s.Snapshot().Valid {
		t.Fatalf("target should be invalid with no agents")
	}
	if pos != wantPos || zoom != wantZoom {
		t.Fatalf("last target should be held: pos=%v zoom=%v", pos, zoom)
	}
}

func TestSelectorClampsZoom(t *testing.T) {
	r := roster.NewRegistry()
	_ = r.Register(&roster.Agent{ID: "P1", Kind: roster.KindPrimary})
	_ = r.Register(&roster.Agent{ID: "C1", Kind: roster.KindClone, Pos: geom.V(100, 0, 0)})
	s := New(r, DefaultConfig())
	s.Update()
	s.Update()
	if _, zoom := s.CurrentTarget(); zoom != 20 {
		t.Fatalf("zoom=%v want clamp to 20", zoom)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := twoAgents(t)
	s := New(r, DefaultConfig())
	s.Update()
	s.Update()
	snap := s.Snapshot()
	snap.Secondaries[0] = "X"
	if s.Snapshot().Secondaries[0] != "C1" {
		t.Fatalf("snapshot must not alias selector state")
	}
}
