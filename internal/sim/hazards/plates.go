package hazards

import (
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

const (
	DefaultPlateRadius = 1.0
	DefaultPlateFade   = 1500 * time.Millisecond
)

// Plate is a pressure plate wired to a barrier. Only a primary can press it;
// clones never do. Once pressed it stays used and the barrier fades out over
// Fade, after which it no longer blocks anything.
type Plate struct {
	ID     string
	Pos    geom.Vec3
	Radius float64
	// Target is the wall id of the barrier.
	Target string
	Fade   time.Duration

	used     bool
	fading   bool
	fadeLeft time.Duration
	open     bool
}

func (p *Plate) Used() bool { return p.used }
func (p *Plate) Open() bool { return p.open }

// Opacity is the barrier's remaining opacity, 1 until pressed and 0 once open.
func (p *Plate) Opacity() float64 {
	switch {
	case p.open:
		return 0
	case !p.fading || p.Fade <= 0:
		return 1
	default:
		return float64(p.fadeLeft) / float64(p.Fade)
	}
}

// Remaining is the fade time left.
func (p *Plate) Remaining() time.Duration { return p.fadeLeft }

func (p *Plate) radius() float64 {
	if p.Radius <= 0 {
		return DefaultPlateRadius
	}
	return p.Radius
}

// press marks the plate used and starts the fade. It reports whether the
// plate changed.
func (p *Plate) press() bool {
	if p.used {
		return false
	}
	p.used = true
	if p.Target != "" {
		p.fading = true
		p.fadeLeft = p.Fade
	}
	return true
}

// advance runs the fade and reports whether the barrier opened this call.
func (p *Plate) advance(dt time.Duration) bool {
	if !p.fading {
		return false
	}
	p.fadeLeft -= dt
	if p.fadeLeft > 0 {
		return false
	}
	p.fadeLeft = 0
	p.fading = false
	p.open = true
	return true
}

type PlateEventKind uint8

const (
	PlatePressed PlateEventKind = iota + 1
	BarrierOpened
)

type PlateEvent struct {
	Kind    PlateEventKind
	PlateID string
	// Target is the barrier wall id.
	Target  string
	AgentID string
}

// LoadPlates replaces the level's plates. Fade defaults to DefaultPlateFade.
func (s *System) LoadPlates(plates []Plate) {
	s.plates = s.plates[:0]
	for i := range plates {
		p := plates[i]
		if p.Fade <= 0 {
			p.Fade = DefaultPlateFade
		}
		p.used, p.fading, p.open, p.fadeLeft = false, false, false, 0
		s.plates = append(s.plates, &p)
	}
}

func (s *System) Plates() []*Plate { return s.plates }

func (s *System) plate(id string) *Plate {
	for _, p := range s.plates {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PressPlate handles a reported contact between agent a and plate id.
// pressed reports whether the plate changed; found is false for an unknown
// plate.
func (s *System) PressPlate(id string, a *roster.Agent) (ev PlateEvent, pressed, found bool) {
	p := s.plate(id)
	if p == nil {
		return PlateEvent{}, false, false
	}
	if a == nil || a.Kind != roster.KindPrimary || !a.NonFrozen() || !p.press() {
		return PlateEvent{}, false, true
	}
	return PlateEvent{Kind: PlatePressed, PlateID: p.ID, Target: p.Target, AgentID: a.ID}, true, true
}

// TickPlates presses plates under an active primary, then advances fades.
// Events come out in plate order.
func (s *System) TickPlates(dt time.Duration, agents []*roster.Agent) []PlateEvent {
	var out []PlateEvent
	for _, p := range s.plates {
		if !p.used {
			for _, a := range agents {
				if a.Kind != roster.KindPrimary || !a.NonFrozen() {
					continue
				}
				if a.Pos.Dist(p.Pos) <= p.radius() && p.press() {
					out = append(out, PlateEvent{Kind: PlatePressed, PlateID: p.ID, Target: p.Target, AgentID: a.ID})
					break
				}
			}
		}
		if p.advance(dt) {
			out = append(out, PlateEvent{Kind: BarrierOpened, PlateID: p.ID, Target: p.Target})
		}
	}
	return out
}
