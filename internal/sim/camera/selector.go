// Package camera picks what the view follows: one primary target plus the
// active clones around it, and a zoom hint wide enough to frame them all.
package camera

import (
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

type Config struct {
	BaseZoom          float64 `yaml:"base_zoom"`
	MinZoom           float64 `yaml:"min_zoom"`
	MaxZoom           float64 `yaml:"max_zoom"`
	ZoomOutMultiplier float64 `yaml:"zoom_out_multiplier"`
}

func DefaultConfig() Config {
	return Config{BaseZoom: 5, MinZoom: 3, MaxZoom: 20, ZoomOutMultiplier: 1.5}
}

type Target struct {
	PrimaryID   string
	Secondaries []string
	Pos         geom.Vec3
	Zoom        float64
	// Valid is false when no agent is eligible; Pos and Zoom then hold the
	// last published values.
	Valid bool
}

type Selector struct {
	reg *roster.Registry
	cfg Config
	cur Target
}

func New(reg *roster.Registry, cfg Config) *Selector {
	return &Selector{reg: reg, cfg: cfg, cur: Target{Zoom: cfg.BaseZoom}}
}

func (s *Selector) Update() {
	primary := s.reg.Get(s.cur.PrimaryID)
	var secondaries []string
	if !primary.NonFrozen() {
		primary = s.reg.FirstNonFrozen()
	} else {
		for _, a := range s.reg.Agents() {
			if a.ID != primary.ID && a.Kind == roster.KindClone && a.NonFrozen() {
				secondaries = append(secondaries, a.ID)
			}
		}
	}
	if primary == nil {
		s.cur.Valid = false
		s.cur.Secondaries = nil
		return
	}

	pts := make([]geom.Vec3, 0, 1+len(secondaries))
	pts = append(pts, primary.Pos)
	for _, id := range secondaries {
		pts = append(pts, s.reg.Get(id).Pos)
	}
	pos, _ := geom.Mean(pts)
	zoom := s.cfg.BaseZoom + geom.MaxPairwiseDistance(pts)*s.cfg.ZoomOutMultiplier

	s.cur = Target{
		PrimaryID:   primary.ID,
		Secondaries: secondaries,
		Pos:         pos,
		Zoom:        geom.Clamp(zoom, s.cfg.MinZoom, s.cfg.MaxZoom),
		Valid:       true,
	}
}

func (s *Selector) CurrentTarget() (geom.Vec3, float64) {
	return s.cur.Pos, s.cur.Zoom
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *Selector) Snapshot() Target {
	t := s.cur
	t.Secondaries = append([]string(nil), s.cur.Secondaries...)
	return t
}

// Reset drops the target, e.g. on level load.
func (s *Selector) Reset() {
	s.cur = Target{Zoom: s.cfg.BaseZoom}
}
