// Package physics is the narrow raycast surface hazards need. The game client
// owns real collision; Space is the headless stand-in used by the server and
// tests.
package physics

import (
	"math"
	"sort"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
)

type Layer uint32

const (
	LayerAgent Layer = 1 << iota
	LayerWall
	LayerBullet

	LayerAll = LayerAgent | LayerWall | LayerBullet
)

type Hit struct {
	BodyID   string
	Tag      string
	Layer    Layer
	Point    geom.Vec3
	Distance float64
}

type Query interface {
	Raycast(origin, dir geom.Vec3, maxDist float64, mask Layer) (Hit, bool)
}

type Sphere struct {
	ID     string
	Tag    string
	Layer  Layer
	Center geom.Vec3
	Radius float64
}

// Box is axis-aligned.
type Box struct {
	ID    string
	Tag   string
	Layer Layer
	Min   geom.Vec3
	Max   geom.Vec3
}

type Space struct {
	spheres map[string]*Sphere
	boxes   []Box
}

func NewSpace() *Space {
	return &Space{spheres: map[string]*Sphere{}}
}

func (s *Space) AddBox(b Box) {
	if b.Layer == 0 {
		b.Layer = LayerWall
	}
	s.boxes = append(s.boxes, b)
}

// PutSphere inserts or moves a sphere body.
func (s *Space) PutSphere(sp Sphere) {
	if sp.Layer == 0 {
		sp.Layer = LayerAgent
	}
	cp := sp
	s.spheres[sp.ID] = &cp
}

func (s *Space) RemoveSphere(id string) { delete(s.spheres, id) }

func (s *Space) ClearSpheres() { s.spheres = map[string]*Sphere{} }

func (s *Space) ClearBoxes() { s.boxes = nil }

// RemoveBox drops every box with id and reports whether any was present.
func (s *Space) RemoveBox(id string) bool {
	kept := s.boxes[:0]
	for _, b := range s.boxes {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	removed := len(kept) != len(s.boxes)
	s.boxes = kept
	return removed
}

// Raycast returns the nearest body on mask within maxDist. Ties break on
// BodyID so results do not depend on map order.
func (s *Space) Raycast(origin, dir geom.Vec3, maxDist float64, mask Layer) (Hit, bool) {
	d := dir.Norm()
	if d == (geom.Vec3{}) || maxDist <= 0 {
		return Hit{}, false
	}
	var hits []Hit
	for _, sp := range s.spheres {
		if sp.Layer&mask == 0 {
			continue
		}
		if t, ok := raySphere(origin, d, sp.Center, sp.Radius); ok && t <= maxDist {
			hits = append(hits, Hit{BodyID: sp.ID, Tag: sp.Tag, Layer: sp.Layer, Point: origin.Add(d.Scale(t)), Distance: t})
		}
	}
	for _, b := range s.boxes {
		if b.Layer&mask == 0 {
			continue
		}
		if t, ok := rayBox(origin, d, b.Min, b.Max); ok && t <= maxDist {
			hits = append(hits, Hit{BodyID: b.ID, Tag: b.Tag, Layer: b.Layer, Point: origin.Add(d.Scale(t)), Distance: t})
		}
	}
	if len(hits) == 0 {
		return Hit{}, false
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].BodyID < hits[j].BodyID
	})
	return hits[0], true
}

// raySphere expects a unit direction. An origin inside the sphere hits at 0.
func raySphere(o, d, c geom.Vec3, r float64) (float64, bool) {
	oc := o.Sub(c)
	b := oc.Dot(d)
	cc := oc.Dot(oc) - r*r
	if cc <= 0 {
		return 0, true
	}
	disc := b*b - cc
	if disc < 0 || b > 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}

func rayBox(o, d, lo, hi geom.Vec3) (float64, bool) {
	tmin, tmax := 0.0, math.Inf(1)
	axes := [3][4]float64{
		{o.X, d.X, lo.X, hi.X},
		{o.Y, d.Y, lo.Y, hi.Y},
		{o.Z, d.Z, lo.Z, hi.Z},
	}
	for _, a := range axes {
		oa, da, l, h := a[0], a[1], a[2], a[3]
		if da == 0 {
			if oa < l || oa > h {
				return 0, false
			}
			continue
		}
		t1, t2 := (l-oa)/da, (h-oa)/da
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
