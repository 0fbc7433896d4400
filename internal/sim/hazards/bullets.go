package hazards

import (
	"fmt"
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
)

type Bullet struct {
	ID     string
	GunID  string
	Pos    geom.Vec3
	Vel    geom.Vec3
	Age    time.Duration
	Active bool
}

// BulletPool hands out bullets from a fixed set of slots and grows when all
// are in flight. Slots are never freed, only deactivated.
type BulletPool struct {
	slots    []*Bullet
	lifetime time.Duration
}

func NewBulletPool(size int, lifetime time.Duration) *BulletPool {
	p := &BulletPool{lifetime: lifetime}
	for i := 0; i < size; i++ {
		p.grow()
	}
	return p
}

func (p *BulletPool) grow() *Bullet {
	b := &Bullet{ID: fmt.Sprintf("bullet_%d", len(p.slots))}
	p.slots = append(p.slots, b)
	return b
}

func (p *BulletPool) Get() *Bullet {
	for _, b := range p.slots {
		if !b.Active {
			b.Active = true
			b.Age = 0
			return b
		}
	}
	b := p.grow()
	b.Active = true
	return b
}

func (p *BulletPool) Return(b *Bullet) {
	b.Active = false
	b.Vel = geom.Vec3{}
	b.Age = 0
}

func (p *BulletPool) Size() int { return len(p.slots) }

func (p *BulletPool) InFlight() int {
	n := 0
	for _, b := range p.slots {
		if b.Active {
			n++
		}
	}
	return n
}

// Active lists in-flight bullets in slot order.
func (p *BulletPool) Active() []*Bullet {
	var out []*Bullet
	for _, b := range p.slots {
		if b.Active {
			out = append(out, b)
		}
	}
	return out
}

func (p *BulletPool) Reset() {
	for _, b := range p.slots {
		p.Return(b)
	}
}
