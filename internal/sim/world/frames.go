package world

import (
	"encoding/json"
	"sort"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/fault"
)

func (w *World) padViews() []protocol.PadView {
	pads := w.cloning.Pads()
	out := make([]protocol.PadView, 0, len(pads))
	for _, p := range pads {
		out = append(out, protocol.PadView{ID: p.ID, Index: p.Index, Pos: p.Pos.ToArray(), Activated: p.Activated})
	}
	return out
}

func (w *World) welcome(sessionID string) protocol.WelcomeMsg {
	primaryID := ""
	if p := w.roster.Primary(); p != nil {
		primaryID = p.ID
	}
	name := ""
	if w.level != nil {
		name = w.level.Name
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Tick:            w.tick.Load(),
		Level: protocol.LevelParams{
			Index:      w.levelIndex,
			Name:       name,
			RunID:      w.runID,
			TickRateHz: w.cfg.TickRateHz,
			PrimaryID:  primaryID,
			Pads:       w.padViews(),
		},
	}
}

// Frame builds the per-tick view pushed to bridge clients and observers.
func (w *World) Frame(tick uint64, digest string) protocol.FrameMsg {
	target := w.camera.Snapshot()
	agents := w.roster.Agents()
	views := make([]protocol.AgentView, 0, len(agents))
	for _, a := range agents {
		v := protocol.AgentView{ID: a.ID, Kind: a.Kind.String(), State: a.State.String(), Pos: a.Pos.ToArray()}
		if a.Transition != nil {
			v.Cause = a.Transition.Cause.String()
			v.RemainingMs = a.Transition.Remaining().Milliseconds()
		}
		views = append(views, v)
	}
	var plates []protocol.PlateView
	for _, p := range w.hazards.Plates() {
		plates = append(plates, protocol.PlateView{ID: p.ID, Target: p.Target, Used: p.Used(), Open: p.Open(), Opacity: p.Opacity()})
	}
	b := w.cloning.Budget()
	return protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		LevelIndex:      w.levelIndex,
		Phase:           w.trigger.Phase().String(),
		Target: protocol.TargetView{
			Pos:         target.Pos.ToArray(),
			Zoom:        target.Zoom,
			Valid:       target.Valid,
			PrimaryID:   target.PrimaryID,
			Secondaries: target.Secondaries,
		},
		Agents: views,
		Pads:   w.padViews(),
		Budget: protocol.BudgetView{
			MaxClones:      b.MaxClones,
			MissingClones:  b.MissingClones,
			CloningAllowed: b.CloningAllowed,
		},
		Plates: plates,
		Digest: digest,
	}
}

func (w *World) broadcastFrame(tick uint64, digest string) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(w.Frame(tick, digest))
	if err != nil {
		return
	}
	for _, id := range w.sortedClientIDs() {
		sendLatest(w.clients[id].Out, b)
	}
}

func (w *World) sceneBytes(request string, next int) []byte {
	b, _ := json.Marshal(protocol.SceneMsg{
		Type:            protocol.TypeScene,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick.Load(),
		Request:         request,
		NextIndex:       next,
	})
	return b
}

// broadcastScene tells bridge clients what to load. Scene requests go on the
// control channel, where a newer request replaces an unread older one.
// Observers do not load scenes and never see these.
func (w *World) broadcastScene(request string, next int) {
	b := w.sceneBytes(request, next)
	for _, id := range w.sortedClientIDs() {
		if c := w.clients[id]; c.Role == RoleBridge {
			sendLatest(c.Control, b)
		}
	}
}

func (w *World) sendReject(sessionID string, err error) {
	c := w.clients[sessionID]
	if c == nil {
		return
	}
	b, mErr := json.Marshal(protocol.RejectMsg{
		Type:            protocol.TypeReject,
		ProtocolVersion: protocol.Version,
		Code:            fault.Code(err),
		Message:         err.Error(),
	})
	if mErr != nil {
		return
	}
	sendLatest(c.Out, b)
}

func (w *World) sortedClientIDs() []string {
	ids := make([]string, 0, len(w.clients))
	for id := range w.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
