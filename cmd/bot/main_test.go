package main

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
)

func newTestBot(script bool) *bot {
	return &bot{logger: log.New(io.Discard, "", 0), script: script}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBot_AcknowledgesScene(t *testing.T) {
	b := newTestBot(false)
	out := b.handle(mustJSON(t, protocol.SceneMsg{Type: protocol.TypeScene, Request: protocol.SceneAdvance, NextIndex: 2}))
	if len(out) != 1 || out[0].Kind != protocol.EventLoadCompleted || out[0].LevelIndex != 2 {
		t.Fatalf("unexpected ack: %+v", out)
	}
}

func TestBot_ScriptedPadTrigger(t *testing.T) {
	b := newTestBot(true)
	frame := protocol.FrameMsg{
		Type:   protocol.TypeFrame,
		Tick:   50,
		Phase:  "PLAYING",
		Target: protocol.TargetView{PrimaryID: "P1"},
		Pads:   []protocol.PadView{{ID: "pad_a", Index: 0}, {ID: "pad_b", Index: 1}},
		Budget: protocol.BudgetView{MaxClones: 1, CloningAllowed: true},
	}
	out := b.handle(mustJSON(t, frame))
	if len(out) != 1 || out[0].Kind != protocol.EventPad || out[0].PadID != "pad_b" || out[0].AgentID != "P1" {
		t.Fatalf("unexpected events: %+v", out)
	}

	frame.Budget.CloningAllowed = false
	if out := b.handle(mustJSON(t, frame)); len(out) != 0 {
		t.Fatalf("no trigger expected when cloning is not allowed: %+v", out)
	}
}

func TestBot_IgnoresGarbage(t *testing.T) {
	if out := newTestBot(true).handle([]byte("not json")); out != nil {
		t.Fatalf("expected nil, got %+v", out)
	}
}
