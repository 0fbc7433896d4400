// Package hazards turns lasers, turrets and the kill plane into hazard
// notifications for the lifecycle machine. Everything is countdown state
// advanced by System.Tick.
package hazards

import (
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/physics"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

type Hazard struct {
	AgentID string
	Cause   roster.Cause
	// Source is the emitter id (laser, gun, "kill_plane").
	Source string
}

type Config struct {
	BulletPoolSize int
	BulletLifetime time.Duration
	KillPlane      *KillPlane
}

type System struct {
	space  physics.Query
	lasers []*Laser
	guns   []*Gun
	pool   *BulletPool
	kill   *KillPlane
	plates []*Plate
}

func NewSystem(space physics.Query, cfg Config) *System {
	if cfg.BulletPoolSize <= 0 {
		cfg.BulletPoolSize = 10
	}
	if cfg.BulletLifetime <= 0 {
		cfg.BulletLifetime = 5 * time.Second
	}
	return &System{
		space: space,
		pool:  NewBulletPool(cfg.BulletPoolSize, cfg.BulletLifetime),
		kill:  cfg.KillPlane,
	}
}

// Load replaces the emitters with a level's set and recalls all bullets.
func (s *System) Load(lasers []Laser, guns []Gun, kill *KillPlane) {
	s.lasers = s.lasers[:0]
	for i := range lasers {
		l := lasers[i]
		s.lasers = append(s.lasers, &l)
	}
	s.guns = s.guns[:0]
	for i := range guns {
		g := guns[i]
		s.guns = append(s.guns, &g)
	}
	if kill != nil {
		s.kill = kill
	}
	s.pool.Reset()
}

func (s *System) Pool() *BulletPool { return s.pool }

// Tick runs lasers, then guns and bullets, then the kill plane. Only Active
// agents are reported, at most once per tick; frozen bodies still block
// beams and bullets.
func (s *System) Tick(dt time.Duration, agents []*roster.Agent) []Hazard {
	active := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.NonFrozen() {
			active[a.ID] = true
		}
	}
	var out []Hazard
	seen := map[string]bool{}
	emit := func(id string, c roster.Cause, src string) {
		if !active[id] || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Hazard{AgentID: id, Cause: c, Source: src})
	}

	for _, l := range s.lasers {
		hit, ok := s.space.Raycast(l.Origin, l.Dir, l.maxDistance(), l.mask())
		if ok && hit.Layer == physics.LayerAgent {
			emit(hit.BodyID, l.Cause, l.ID)
		}
	}

	for _, g := range s.guns {
		for n := g.due(dt); n > 0; n-- {
			b := s.pool.Get()
			b.GunID = g.ID
			b.Pos = g.FirePoint
			b.Vel = g.Dir.Norm().Scale(g.BulletSpeed)
		}
	}
	for _, b := range s.pool.Active() {
		b.Age += dt
		if b.Age >= s.pool.lifetime {
			s.pool.Return(b)
			continue
		}
		step := b.Vel.Scale(dt.Seconds())
		dist := step.Len()
		if dist > 0 {
			hit, ok := s.space.Raycast(b.Pos, step, dist, physics.LayerAgent|physics.LayerWall)
			if ok {
				if hit.Layer == physics.LayerAgent {
					emit(hit.BodyID, roster.CauseInstantKill, b.GunID)
				}
				s.pool.Return(b)
				continue
			}
		}
		b.Pos = b.Pos.Add(step)
	}

	if s.kill != nil {
		for _, a := range agents {
			if a.Pos.Y < s.kill.Y {
				emit(a.ID, roster.CauseFall, "kill_plane")
			}
		}
	}
	return out
}
