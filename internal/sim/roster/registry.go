// Package roster owns the live set of controllable agents. Every change to
// roster membership goes through Registry; other components only query it.
package roster

import (
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
)

type Registry struct {
	agents map[string]*Agent
	// order is registration order; lookups that "pick the first" walk it.
	order []string
}

func NewRegistry() *Registry {
	return &Registry{agents: map[string]*Agent{}}
}

func (r *Registry) Register(a *Agent) error {
	if a == nil || a.ID == "" {
		return fault.InvalidAgent("register", "")
	}
	if a.Kind != KindPrimary && a.Kind != KindClone {
		return fault.InvalidAgent("register", a.ID)
	}
	if _, ok := r.agents[a.ID]; ok {
		return fault.DuplicateRegistration("register", a.ID)
	}
	if a.Kind == KindPrimary {
		if p := r.Primary(); p != nil {
			return fault.InvalidAgent("register", a.ID)
		}
	}
	if a.State == 0 {
		a.State = StateActive
	}
	r.agents[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

// Unregister is idempotent; it reports whether the agent was present.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.agents[id]; !ok {
		return false
	}
	delete(r.agents, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Get(id string) *Agent { return r.agents[id] }

func (r *Registry) Count() int { return len(r.agents) }

func (r *Registry) NonFrozenCount() int {
	n := 0
	for _, a := range r.agents {
		if a.NonFrozen() {
			n++
		}
	}
	return n
}

// ActiveCount is the externally exposed name for NonFrozenCount.
func (r *Registry) ActiveCount() int { return r.NonFrozenCount() }

// Agents returns the roster in registration order. The slice is a copy; the
// agents are not.
func (r *Registry) Agents() []*Agent {
	out := make([]*Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

func (r *Registry) Primary() *Agent {
	for _, id := range r.order {
		if a := r.agents[id]; a.Kind == KindPrimary {
			return a
		}
	}
	return nil
}

// FindEligibleForCloning prefers an Active primary, then the first Active
// clone in registration order.
func (r *Registry) FindEligibleForCloning() *Agent {
	if p := r.Primary(); p.NonFrozen() {
		return p
	}
	for _, id := range r.order {
		if a := r.agents[id]; a.Kind == KindClone && a.NonFrozen() {
			return a
		}
	}
	return nil
}

// FirstNonFrozen is the first Active agent in registration order, whatever its kind.
func (r *Registry) FirstNonFrozen() *Agent {
	for _, id := range r.order {
		if a := r.agents[id]; a.NonFrozen() {
			return a
		}
	}
	return nil
}

// Promote retags the lone surviving clone as primary.
func (r *Registry) Promote(id string) error {
	a := r.agents[id]
	if a == nil || len(r.agents) != 1 || a.Kind != KindClone {
		return fault.InvalidAgent("promote", id)
	}
	a.Kind = KindPrimary
	return nil
}

func (r *Registry) SetPosition(id string, pos geom.Vec3) error {
	a := r.agents[id]
	if a == nil {
		return fault.InvalidAgent("set_position", id)
	}
	a.Pos = pos
	return nil
}

// Reset drops every agent, marking each Removed for holders of stale pointers.
func (r *Registry) Reset() {
	for _, a := range r.agents {
		a.State = StateRemoved
		a.Transition = nil
	}
	r.agents = map[string]*Agent{}
	r.order = r.order[:0]
}
