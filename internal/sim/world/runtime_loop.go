package world

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := w.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []EventEnvelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.inbox:
			pending = append(pending, env)
		case <-ticker.C:
			w.stepInternal(interval, pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Step advances the world by one tick of length dt, applying events in the
// order given. It is the synchronous form of what Run does each tick.
func (w *World) Step(dt time.Duration, events []protocol.EventMsg) StepResult {
	envs := make([]EventEnvelope, 0, len(events))
	for _, ev := range events {
		envs = append(envs, EventEnvelope{Event: ev})
	}
	return w.stepInternal(dt, envs)
}

// StepOnce advances by one fixed-length tick. It is primarily intended for
// deterministic replays/tests.
func (w *World) StepOnce(events []protocol.EventMsg) (tick uint64, digest string) {
	res := w.Step(w.TickInterval(), events)
	return res.Tick, res.Digest
}

func (w *World) handleJoin(req JoinRequest) {
	id := uuid.NewString()
	role := req.Role
	if role != RoleObserver {
		role = RoleBridge
	}
	c := &clientState{ID: id, Role: role, Name: req.ClientName, Out: req.Out}
	if role == RoleBridge {
		c.Control = make(chan []byte, 1)
		// A bridge joining mid-transition still has to hear what to load.
		if reload, next, ok := w.trigger.Pending(); ok {
			if reload {
				sendLatest(c.Control, w.sceneBytes(protocol.SceneReload, w.levelIndex))
			} else {
				sendLatest(c.Control, w.sceneBytes(protocol.SceneAdvance, next))
			}
		}
	}
	w.clients[id] = c
	w.logger.Printf("session: join id=%s role=%s name=%q", id, role, req.ClientName)
	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: w.welcome(id), Control: c.Control}
	}
}

func (w *World) handleLeave(id string) {
	if _, ok := w.clients[id]; ok {
		delete(w.clients, id)
		w.logger.Printf("session: leave id=%s", id)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
