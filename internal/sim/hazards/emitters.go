package hazards

import (
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/physics"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

// Laser is a continuous beam. Cause decides whether a hit freezes the agent
// in place or kills it outright.
type Laser struct {
	ID          string
	Origin      geom.Vec3
	Dir         geom.Vec3
	MaxDistance float64
	Mask        physics.Layer
	Cause       roster.Cause
}

func (l *Laser) mask() physics.Layer {
	if l.Mask == 0 {
		return physics.LayerAgent | physics.LayerWall
	}
	return l.Mask
}

func (l *Laser) maxDistance() float64 {
	if l.MaxDistance <= 0 {
		return 100
	}
	return l.MaxDistance
}

// Gun fires BulletsPerBurst bullets FireRate apart, then waits BurstPause.
type Gun struct {
	ID              string
	FirePoint       geom.Vec3
	Dir             geom.Vec3
	BulletSpeed     float64
	FireRate        time.Duration
	BulletsPerBurst int
	BurstPause      time.Duration

	next  time.Duration
	fired int
}

func DefaultGun(id string, at, dir geom.Vec3) Gun {
	return Gun{
		ID:              id,
		FirePoint:       at,
		Dir:             dir,
		BulletSpeed:     10,
		FireRate:        300 * time.Millisecond,
		BulletsPerBurst: 5,
		BurstPause:      2 * time.Second,
	}
}

// due advances the cadence by dt and returns how many shots fall in it.
// A gun with no positive interval fires at most once per call.
func (g *Gun) due(dt time.Duration) int {
	if g.BulletsPerBurst <= 0 {
		return 0
	}
	g.next -= dt
	shots := 0
	for g.next <= 0 {
		shots++
		g.fired++
		wait := g.FireRate
		if g.fired >= g.BulletsPerBurst {
			g.fired = 0
			wait += g.BurstPause
		}
		if wait <= 0 {
			g.next = 0
			break
		}
		g.next += wait
	}
	return shots
}

type KillPlane struct {
	Y float64
}
