// Package transition decides, exactly once per level, whether to reload the
// current level or advance to the next one.
package transition

import "time"

type Phase uint8

const (
	PhasePlaying Phase = iota
	PhaseReloading
	PhaseAdvancing
)

func (p Phase) String() string {
	switch p {
	case PhaseReloading:
		return "RELOADING"
	case PhaseAdvancing:
		return "ADVANCING"
	default:
		return "PLAYING"
	}
}

// SceneLoader is implemented by whatever actually loads levels. Both calls
// must return quickly; completion is reported back via OnLoadCompleted.
type SceneLoader interface {
	RequestReload()
	RequestAdvance(nextIndex int)
}

type Trigger struct {
	loader     SceneLoader
	goalDelay  time.Duration
	phase      Phase
	suppressed bool

	advancePending bool
	advanceIn      time.Duration
	nextIndex      int

	reloadRaces uint64
	reloads     uint64
	advances    uint64
}

func New(loader SceneLoader, goalDelay time.Duration) *Trigger {
	return &Trigger{loader: loader, goalDelay: goalDelay}
}

func (t *Trigger) Phase() Phase { return t.phase }

// Evaluate runs once per tick, after every roster mutation of that tick.
// losses is the number of agents lost (not goal removals) during the tick.
// Losses that empty the roster beyond the one that requests the reload, or
// that land while a request is already latched, are coalesced and counted
// as reload races. It reports whether a reload was requested.
func (t *Trigger) Evaluate(count, losses int) bool {
	if count != 0 {
		return false
	}
	if t.phase != PhasePlaying || t.suppressed {
		if losses > 0 {
			t.reloadRaces += uint64(losses)
		}
		return false
	}
	if losses > 1 {
		t.reloadRaces += uint64(losses - 1)
	}
	t.phase = PhaseReloading
	t.reloads++
	t.loader.RequestReload()
	return true
}

// Pending reports the scene request the trigger is waiting on, if any. ok is
// false while playing or while an advance is still counting down.
func (t *Trigger) Pending() (reload bool, nextIndex int, ok bool) {
	switch {
	case t.phase == PhaseReloading:
		return true, 0, true
	case t.phase == PhaseAdvancing && !t.advancePending:
		return false, t.nextIndex, true
	default:
		return false, 0, false
	}
}

// NoteGoalReached suppresses the reload path and schedules a single advance
// request after the goal delay. Ignored unless playing.
func (t *Trigger) NoteGoalReached(nextIndex int) bool {
	if t.phase != PhasePlaying {
		return false
	}
	t.suppressed = true
	t.phase = PhaseAdvancing
	t.advancePending = true
	t.advanceIn = t.goalDelay
	t.nextIndex = nextIndex
	return true
}

// Tick counts down a pending advance and reports whether it fired.
func (t *Trigger) Tick(dt time.Duration) bool {
	if !t.advancePending {
		return false
	}
	t.advanceIn -= dt
	if t.advanceIn > 0 {
		return false
	}
	t.advancePending = false
	t.advances++
	t.loader.RequestAdvance(t.nextIndex)
	return true
}

func (t *Trigger) OnLoadCompleted() {
	t.phase = PhasePlaying
	t.suppressed = false
	t.advancePending = false
	t.advanceIn = 0
}

type Stats struct {
	Reloads     uint64
	Advances    uint64
	ReloadRaces uint64
}

func (t *Trigger) Stats() Stats {
	return Stats{Reloads: t.reloads, Advances: t.advances, ReloadRaces: t.reloadRaces}
}
