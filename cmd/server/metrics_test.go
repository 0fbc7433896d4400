package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/indexdb"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

func TestWriteMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := world.WorldMetrics{
		Tick:           42,
		Phase:          "RELOADING",
		Agents:         2,
		NonFrozen:      1,
		MaxClones:      1,
		CloningAllowed: true,
		ReloadRaces:    3,
		Rejections:     map[string]uint64{"E_NO_CLONES_OWED": 2, "E_INVALID_AGENT_REFERENCE": 1},
	}
	writeMetrics(&buf, "s1", m, &indexdb.Stats{DropTickTotal: 5})
	out := buf.String()

	want := []string{
		`gamejam_tick{session="s1"} 42`,
		`gamejam_phase{session="s1",phase="RELOADING"} 1`,
		`gamejam_phase{session="s1",phase="PLAYING"} 0`,
		`gamejam_agents{session="s1",state="non_frozen"} 1`,
		`gamejam_clone_budget{session="s1",field="allowed"} 1`,
		`gamejam_transitions_total{session="s1",kind="reload_race"} 3`,
		`gamejam_rejections_total{session="s1",code="E_NO_CLONES_OWED"} 2`,
		`gamejam_index_dropped_total{session="s1",kind="tick"} 5`,
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Fatalf("missing %q in:\n%s", w, out)
		}
	}
	if strings.Index(out, "E_INVALID_AGENT_REFERENCE") > strings.Index(out, "E_NO_CLONES_OWED") {
		t.Fatalf("rejection codes should be sorted")
	}
}

func TestWriteMetrics_NoIndex(t *testing.T) {
	var buf bytes.Buffer
	writeMetrics(&buf, "s1", world.WorldMetrics{}, nil)
	if strings.Contains(buf.String(), "gamejam_index_") {
		t.Fatalf("index metrics should be omitted when the index is disabled")
	}
}
