// Command bot is a headless bridge: it joins /v1/bridge, acknowledges every
// scene request and can script a simple clone run for smoke testing.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/bridge", "bridge ws url")
		name   = flag.String("name", "bot", "client name")
		script = flag.Bool("script", true, "trigger the highest-index pad whenever cloning is allowed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        32,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{logger: logger, script: *script}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, out := range b.handle(msg) {
			if err := conn.WriteJSON(out); err != nil {
				logger.Printf("write: %v", err)
				return
			}
		}
	}
}

type bot struct {
	logger *log.Logger
	script bool

	pads     []protocol.PadView
	lastTick uint64
}

// handle reacts to one server message and returns the events to send back.
func (b *bot) handle(msg []byte) []protocol.EventMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil
		}
		b.pads = w.Level.Pads
		b.logger.Printf("WELCOME session=%s level=%d (%s) pads=%d", w.SessionID, w.Level.Index, w.Level.Name, len(w.Level.Pads))

	case protocol.TypeScene:
		var s protocol.SceneMsg
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil
		}
		b.logger.Printf("SCENE %s next=%d tick=%d", s.Request, s.NextIndex, s.Tick)
		return []protocol.EventMsg{{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Kind:            protocol.EventLoadCompleted,
			LevelIndex:      s.NextIndex,
		}}

	case protocol.TypeReject:
		var r protocol.RejectMsg
		if err := json.Unmarshal(msg, &r); err == nil {
			b.logger.Printf("REJECT %s: %s", r.Code, r.Message)
		}

	case protocol.TypeFrame:
		var f protocol.FrameMsg
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil
		}
		b.pads = f.Pads
		b.lastTick = f.Tick
		if !b.script || !f.Budget.CloningAllowed || f.Phase != "PLAYING" || len(f.Pads) < 2 {
			return nil
		}
		// Throttled to every 25th frame.
		if f.Tick%25 != 0 {
			return nil
		}
		primary := f.Target.PrimaryID
		if primary == "" {
			return nil
		}
		pad := f.Pads[len(f.Pads)-1]
		return []protocol.EventMsg{{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Kind:            protocol.EventPad,
			AgentID:         primary,
			PadID:           pad.ID,
		}}
	}
	return nil
}
