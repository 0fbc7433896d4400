package main

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/indexdb"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

func seedIndex(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{Tick: 0, Digest: "d0"})
	_ = idx.WriteTick(world.TickLogEntry{Tick: 1, Digest: "d1", Events: []protocol.EventMsg{{Kind: protocol.EventPad, AgentID: "P1", PadID: "pad_b"}}})
	_ = idx.WriteLifecycle(world.LifecycleEntry{Tick: 1, Kind: world.EntrySpawn, AgentID: "C1"})
	_ = idx.WriteLifecycle(world.LifecycleEntry{Tick: 1, Kind: world.EntryReject, AgentID: "ghost", Code: protocol.ErrInvalidAgentReference})
	_ = idx.WriteLifecycle(world.LifecycleEntry{Tick: 2, Kind: world.EntryReload})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func collect(t *testing.T, db *sql.DB, q, agent string) []string {
	t.Helper()
	var out []string
	err := runQuery(db, q, agent, 20, func(v any) {
		b, _ := json.Marshal(v)
		out = append(out, string(b))
	})
	if err != nil {
		t.Fatalf("%s: %v", q, err)
	}
	return out
}

func TestRunQuery_Summary(t *testing.T) {
	db := seedIndex(t)
	out := collect(t, db, "summary", "")
	if len(out) != 1 {
		t.Fatalf("rows=%d", len(out))
	}
	for _, want := range []string{`"ticks":2`, `"events":1`, `"spawns":1`, `"reloads":1`} {
		if !strings.Contains(out[0], want) {
			t.Fatalf("summary %s missing %s", out[0], want)
		}
	}
}

func TestRunQuery_LifecycleByAgent(t *testing.T) {
	db := seedIndex(t)
	out := collect(t, db, "lifecycle", "C1")
	if len(out) != 1 || !strings.Contains(out[0], `"kind":"SPAWN"`) {
		t.Fatalf("unexpected rows: %v", out)
	}
}

func TestRunQuery_RejectionsAndTicks(t *testing.T) {
	db := seedIndex(t)
	rej := collect(t, db, "rejections", "")
	if len(rej) != 1 || !strings.Contains(rej[0], protocol.ErrInvalidAgentReference) {
		t.Fatalf("unexpected rejections: %v", rej)
	}
	ticks := collect(t, db, "ticks", "")
	if len(ticks) != 1 || !strings.Contains(ticks[0], `"tick":1`) {
		t.Fatalf("unexpected ticks: %v", ticks)
	}
	if err := runQuery(db, "nope", "", 1, func(any) {}); err == nil {
		t.Fatalf("expected unknown query error")
	}
}

func TestDecodeLifecycleFilters(t *testing.T) {
	in := `{"tick":1,"kind":"SPAWN","agent_id":"C1","pos":[0,0,0]}
{"tick":2,"kind":"REMOVE","agent_id":"C1","pos":[0,0,0]}

{"tick":3,"kind":"SPAWN","agent_id":"C2","pos":[0,0,0]}
`
	var got []world.LifecycleEntry
	if err := decodeLifecycle(strings.NewReader(in), func(e world.LifecycleEntry) {
		if matchLifecycle(e, "", "spawn") {
			got = append(got, e)
		}
	}); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].AgentID != "C2" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
