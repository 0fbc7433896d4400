package world

import (
	"fmt"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/hazards"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/lifecycle"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/physics"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

// Collision tags understood by OnCollision.
const (
	TagClonePad = "ClonePad"
	TagGoal     = "Goal"
	TagBullet   = "Bullet"
	TagKillZone = "KillZone"
	TagLaser    = "Laser"
	TagPlate    = "PressurePlate"
)

// OnAgentHazard starts the death or freeze transition for cause. A goal cause
// is routed to OnGoalReached.
func (w *World) OnAgentHazard(agentID string, cause roster.Cause) error {
	if cause == roster.CauseGoalReached {
		return w.OnGoalReached(agentID)
	}
	if err := w.life.Begin(agentID, cause); err != nil {
		return w.rejected("hazard", err)
	}
	a := w.roster.Get(agentID)
	w.logger.Printf("lifecycle: begin agent=%s cause=%s", agentID, cause)
	w.writeLifecycle(LifecycleEntry{Kind: EntryBegin, AgentID: agentID, AgentKind: a.Kind.String(), Cause: cause.String(), Pos: a.Pos.ToArray()})
	return nil
}

func (w *World) OnPadTriggered(padID, agentID string) error {
	out, err := w.cloning.OnPadTriggered(padID, agentID, w.tick.Load())
	if err != nil {
		return w.rejected("pad", err)
	}
	if out.Skipped != "" {
		w.logger.Printf("cloning: pad=%s agent=%s skipped (%s)", padID, agentID, out.Skipped)
		return nil
	}
	for _, ferr := range out.Failed {
		w.rejected("spawn", ferr)
	}
	for _, c := range out.Spawned {
		w.spawnedTotal++
		w.res.Spawned = append(w.res.Spawned, c.ID)
		w.space.PutSphere(w.sphereFor(c))
		w.writeLifecycle(LifecycleEntry{Kind: EntrySpawn, AgentID: c.ID, AgentKind: c.Kind.String(), PadID: c.SpawnPad, Pos: c.Pos.ToArray(), Reason: "source=" + c.SourceID})
	}
	b := w.cloning.Budget()
	w.logger.Printf("cloning: pad=%s source=%s spawned=%d missing=%d", padID, out.SourceID, len(out.Spawned), b.MissingClones)
	return nil
}

// OnGoalReached removes the agent immediately and schedules the advance.
func (w *World) OnGoalReached(agentID string) error {
	c, err := w.life.Remove(agentID, roster.CauseGoalReached)
	if err != nil {
		return w.rejected("goal", err)
	}
	w.finish(c)
	next := w.set.Next(w.levelIndex)
	if w.trigger.NoteGoalReached(next) {
		w.logger.Printf("transition: goal reached agent=%s next=%d", agentID, next)
	}
	return nil
}

// OnCollision routes a tagged contact to the matching handler. Unknown tags
// are ignored.
func (w *World) OnCollision(agentID, otherID, tag string) error {
	switch tag {
	case TagClonePad:
		return w.OnPadTriggered(otherID, agentID)
	case TagGoal:
		return w.OnGoalReached(agentID)
	case TagBullet:
		return w.OnAgentHazard(agentID, roster.CauseInstantKill)
	case TagKillZone:
		return w.OnAgentHazard(agentID, roster.CauseFall)
	case TagLaser:
		return w.OnAgentHazard(agentID, roster.CauseLaserFreeze)
	case TagPlate:
		return w.OnPlatePressed(otherID, agentID)
	default:
		return nil
	}
}

// OnPlatePressed reports an agent standing on a pressure plate. Only an
// active primary presses it; other agents are ignored.
func (w *World) OnPlatePressed(plateID, agentID string) error {
	a := w.roster.Get(agentID)
	if a == nil {
		return w.rejected("plate", fault.InvalidAgent("plate", agentID))
	}
	pe, pressed, found := w.hazards.PressPlate(plateID, a)
	if !found {
		return w.rejected("plate", fault.InvalidAgent("plate", plateID))
	}
	if pressed {
		w.plateEvent(pe)
	}
	return nil
}

// plateEvent logs a plate change; an opened barrier leaves the physics space
// so beams and bullets pass through.
func (w *World) plateEvent(pe hazards.PlateEvent) {
	switch pe.Kind {
	case hazards.PlatePressed:
		w.logger.Printf("plate: %s pressed by %s target=%s", pe.PlateID, pe.AgentID, pe.Target)
		w.writeLifecycle(LifecycleEntry{Kind: EntryPlate, AgentID: pe.AgentID, PadID: pe.PlateID, Reason: "target=" + pe.Target})
	case hazards.BarrierOpened:
		w.space.RemoveBox(pe.Target)
		w.logger.Printf("plate: %s opened barrier %s", pe.PlateID, pe.Target)
		w.writeLifecycle(LifecycleEntry{Kind: EntryBarrier, PadID: pe.PlateID, Reason: "target=" + pe.Target})
	}
}

func (w *World) SetAgentPosition(agentID string, pos geom.Vec3) error {
	if err := w.roster.SetPosition(agentID, pos); err != nil {
		return w.rejected("move", err)
	}
	return nil
}

// OnLoadCompleted installs l and returns the trigger to Playing.
func (w *World) OnLoadCompleted(l *levels.Level) error {
	if l == nil {
		return w.rejected("load", fault.New(protocol.ErrProtoBadRequest, "load", ""))
	}
	return w.loadLevel(l)
}

func (w *World) applyEvent(ev protocol.EventMsg) error {
	switch ev.Kind {
	case protocol.EventHazard:
		cause, ok := roster.ParseCause(ev.Cause)
		if !ok {
			return w.rejected("hazard", fault.New(protocol.ErrProtoBadRequest, "hazard", ev.Cause))
		}
		return w.OnAgentHazard(ev.AgentID, cause)
	case protocol.EventPad:
		return w.OnPadTriggered(ev.PadID, ev.AgentID)
	case protocol.EventGoal:
		return w.OnGoalReached(ev.AgentID)
	case protocol.EventCollision:
		return w.OnCollision(ev.AgentID, ev.OtherID, ev.Tag)
	case protocol.EventMove:
		return w.SetAgentPosition(ev.AgentID, geom.V(ev.Pos[0], ev.Pos[1], ev.Pos[2]))
	case protocol.EventLoadCompleted:
		l, ok := w.set.At(ev.LevelIndex)
		if !ok {
			return w.rejected("load", fault.New(protocol.ErrProtoBadRequest, "load", fmt.Sprintf("level %d", ev.LevelIndex)))
		}
		return w.OnLoadCompleted(l)
	default:
		return w.rejected("event", fault.New(protocol.ErrProtoBadRequest, "event", ev.Kind))
	}
}

// finish records a completed removal. Losses owe a clone; goals do not.
func (w *World) finish(c lifecycle.Completed) {
	w.completedTotal++
	w.res.Completed = append(w.res.Completed, c)
	w.space.RemoveSphere(c.AgentID)
	if c.Cause.IsLoss() {
		w.cloning.HandleAgentLoss(c.AgentID)
	}
	w.logger.Printf("lifecycle: removed agent=%s kind=%s cause=%s remaining=%d", c.AgentID, c.Kind, c.Cause, w.roster.Count())
	w.writeLifecycle(LifecycleEntry{Kind: EntryRemove, AgentID: c.AgentID, AgentKind: c.Kind.String(), Cause: c.Cause.String(), Pos: c.Pos.ToArray()})
}

// promoteLoneClone retags the last agent standing as primary when it is a clone.
func (w *World) promoteLoneClone() {
	if w.roster.Count() != 1 {
		return
	}
	a := w.roster.Agents()[0]
	if a.Kind != roster.KindClone {
		return
	}
	if err := w.roster.Promote(a.ID); err != nil {
		w.rejected("promote", err)
		return
	}
	w.promotedTotal++
	w.res.Promoted = a.ID
	w.space.PutSphere(w.sphereFor(a))
	w.logger.Printf("roster: promoted %s to primary", a.ID)
	w.writeLifecycle(LifecycleEntry{Kind: EntryPromote, AgentID: a.ID, AgentKind: a.Kind.String(), Pos: a.Pos.ToArray()})
}

func (w *World) rejected(op string, err error) error {
	code := fault.Code(err)
	w.rejections[code]++
	w.res.Rejections = append(w.res.Rejections, err)
	w.logger.Printf("%s: rejected: %v", op, err)
	w.writeLifecycle(LifecycleEntry{Kind: EntryReject, Code: code, Reason: err.Error()})
	return err
}

func (w *World) sphereFor(a *roster.Agent) physics.Sphere {
	tag := "Player"
	if a.Kind == roster.KindClone {
		tag = "PlayerClone"
	}
	return physics.Sphere{ID: a.ID, Tag: tag, Layer: physics.LayerAgent, Center: a.Pos, Radius: w.cfg.AgentRadius}
}

// syncSpace mirrors roster positions into the physics space. Bodies of
// frozen agents stay; removed agents are gone.
func (w *World) syncSpace() {
	w.space.ClearSpheres()
	for _, a := range w.roster.Agents() {
		w.space.PutSphere(w.sphereFor(a))
	}
}
