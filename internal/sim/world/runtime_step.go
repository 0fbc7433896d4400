package world

import (
	"fmt"
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
)

// stepInternal is the one place the per-tick order lives:
//
//	events -> plates -> hazards -> lifecycle completions -> pad reset -> camera ->
//	reload/advance check -> digest, logs, frames, metrics
func (w *World) stepInternal(dt time.Duration, envs []EventEnvelope) StepResult {
	stepStart := time.Now()
	nowTick := w.tick.Load()
	w.res = StepResult{Tick: nowTick}

	if w.pendingAck != nil {
		ack := protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Kind:            protocol.EventLoadCompleted,
			LevelIndex:      *w.pendingAck,
		}
		w.pendingAck = nil
		envs = append([]EventEnvelope{{Event: ack}}, envs...)
	}

	// Apply events in server receive order (the inbox order).
	recorded := make([]protocol.EventMsg, 0, len(envs))
	for _, env := range envs {
		recorded = append(recorded, env.Event)
		if err := w.applyEvent(env.Event); err != nil && env.SessionID != "" {
			w.sendReject(env.SessionID, err)
		}
	}

	w.syncSpace()
	for _, pe := range w.hazards.TickPlates(dt, w.roster.Agents()) {
		w.plateEvent(pe)
	}
	for _, hz := range w.hazards.Tick(dt, w.roster.Agents()) {
		_ = w.OnAgentHazard(hz.AgentID, hz.Cause)
	}

	for _, c := range w.life.Tick(dt) {
		w.finish(c)
	}
	w.promoteLoneClone()

	if w.roster.NonFrozenCount() == 1 && w.cloning.ResetCloneAvailability() {
		w.res.PadsReset = true
		w.logger.Printf("cloning: pads re-armed (one agent left)")
		w.writeLifecycle(LifecycleEntry{Kind: EntryPadsReset})
	}

	w.camera.Update()
	w.res.Target, w.res.Zoom = w.camera.CurrentTarget()

	// Evaluate exactly once, after every mutation of this tick.
	losses := 0
	for _, c := range w.res.Completed {
		if c.Cause.IsLoss() {
			losses++
		}
	}
	racesBefore := w.trigger.Stats().ReloadRaces
	w.trigger.Evaluate(w.roster.Count(), losses)
	if n := w.trigger.Stats().ReloadRaces - racesBefore; n > 0 {
		err := fault.ReloadRace("transition", fmt.Sprintf("coalesced=%d", n))
		w.logger.Printf("%v", err)
		w.writeLifecycle(LifecycleEntry{Kind: EntryRace, Code: fault.Code(err), Reason: err.Error()})
	}
	w.trigger.Tick(dt)

	digest := w.stateDigest(nowTick)
	w.res.Digest = digest
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:       nowTick,
			LevelIndex: w.levelIndex,
			DtMicros:   dt.Microseconds(),
			Events:     recorded,
			Digest:     digest,
		})
	}

	w.broadcastFrame(nowTick, digest)

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, stepMS)
	return w.res
}
