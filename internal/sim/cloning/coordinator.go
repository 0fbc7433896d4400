// Package cloning decides when, where and how many clones spawn from pads.
package cloning

import (
	"fmt"
	"sort"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

type Pad struct {
	ID        string
	Index     int
	Pos       geom.Vec3
	Activated bool
	// LastSpawned is the id of the last clone placed here (diagnostic).
	LastSpawned string
}

type Budget struct {
	MaxClones      int
	MissingClones  int
	CloningAllowed bool
	HasCloned      bool
}

// Skip reasons reported for silent no-ops.
const (
	SkipNotAllowed    = "cloning_not_allowed"
	SkipPadActivated  = "pad_activated"
	SkipAgentInactive = "agent_inactive"
)

type Outcome struct {
	SourceID string
	Spawned  []*roster.Agent
	Skipped  string
	// Failed holds registrations refused during the batch. Their pads stay
	// unactivated.
	Failed []error
}

type Coordinator struct {
	reg    *roster.Registry
	pads   []*Pad
	byID   map[string]*Pad
	budget Budget
	nextID int
}

func New(reg *roster.Registry) *Coordinator {
	return &Coordinator{reg: reg, byID: map[string]*Pad{}}
}

// Load installs a level's pads, ordered by Index, and a fresh budget. Clone
// ids keep counting across loads so they never repeat within a run.
func (c *Coordinator) Load(pads []Pad) error {
	byID := make(map[string]*Pad, len(pads))
	list := make([]*Pad, 0, len(pads))
	for i := range pads {
		p := pads[i]
		if p.ID == "" {
			return fmt.Errorf("pad %d: missing id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return fmt.Errorf("pad %s: duplicate id", p.ID)
		}
		p.Activated = false
		p.LastSpawned = ""
		byID[p.ID] = &p
		list = append(list, &p)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Index < list[j].Index })

	c.pads = list
	c.byID = byID
	maxClones := len(list) - 1
	if maxClones < 0 {
		maxClones = 0
	}
	c.budget = Budget{MaxClones: maxClones, CloningAllowed: true}
	return nil
}

func (c *Coordinator) Budget() Budget { return c.budget }

// Pads returns copies in index order.
func (c *Coordinator) Pads() []Pad {
	out := make([]Pad, 0, len(c.pads))
	for _, p := range c.pads {
		out = append(out, *p)
	}
	return out
}

func (c *Coordinator) OnPadTriggered(padID, agentID string, tick uint64) (Outcome, error) {
	pad := c.byID[padID]
	if pad == nil {
		return Outcome{}, fault.InvalidAgent("pad", padID)
	}
	agent := c.reg.Get(agentID)
	if agent == nil {
		return Outcome{}, fault.InvalidAgent("pad", agentID)
	}
	switch {
	case !c.budget.CloningAllowed:
		return Outcome{Skipped: SkipNotAllowed}, nil
	case pad.Activated:
		return Outcome{Skipped: SkipPadActivated}, nil
	case !agent.NonFrozen():
		return Outcome{Skipped: SkipAgentInactive}, nil
	}

	if src := c.reg.FindEligibleForCloning(); src == nil || src.ID != agent.ID {
		return Outcome{}, fault.NoEligibleSource("pad", agentID)
	}

	var avail []*Pad
	for _, p := range c.pads {
		if p != pad && !p.Activated {
			avail = append(avail, p)
		}
	}

	n := len(avail)
	if c.budget.MissingClones > 0 {
		if c.budget.MissingClones < n {
			n = c.budget.MissingClones
		}
	} else if c.budget.HasCloned {
		return Outcome{}, fault.NoClonesOwed("pad", padID)
	}
	if n == 0 {
		return Outcome{}, fault.NoAvailablePad("pad", padID)
	}

	out := Outcome{SourceID: agent.ID}
	for _, p := range avail[:n] {
		c.nextID++
		clone := &roster.Agent{
			ID:       fmt.Sprintf("C%d", c.nextID),
			Kind:     roster.KindClone,
			State:    roster.StateActive,
			Pos:      p.Pos,
			SourceID: agent.ID,
			SpawnPad: p.ID,
			BornTick: tick,
		}
		if err := c.reg.Register(clone); err != nil {
			out.Failed = append(out.Failed, err)
			continue
		}
		p.Activated = true
		p.LastSpawned = clone.ID
		out.Spawned = append(out.Spawned, clone)
	}
	if c.budget.MissingClones > 0 {
		c.budget.MissingClones -= len(out.Spawned)
	}
	pad.Activated = true
	c.budget.CloningAllowed = false
	c.budget.HasCloned = true
	return out, nil
}

// ResetCloneAvailability re-arms every pad. It reports whether anything
// changed so callers can log only real transitions.
func (c *Coordinator) ResetCloneAvailability() bool {
	changed := !c.budget.CloningAllowed
	for _, p := range c.pads {
		if p.Activated {
			p.Activated = false
			changed = true
		}
	}
	c.budget.CloningAllowed = true
	return changed
}

func (c *Coordinator) HandleAgentLoss(agentID string) {
	if c.budget.MissingClones < c.budget.MaxClones {
		c.budget.MissingClones++
	}
}
