package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/indexdb"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

// writeMetrics renders m in the Prometheus text exposition format.
func writeMetrics(w io.Writer, session string, m world.WorldMetrics, idx *indexdb.Stats) {
	gauge := func(name, help string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
	}

	gauge("gamejam_tick", "Current simulation tick.")
	fmt.Fprintf(w, "gamejam_tick{session=%q} %d\n", session, m.Tick)

	gauge("gamejam_level_index", "Index of the loaded level.")
	fmt.Fprintf(w, "gamejam_level_index{session=%q} %d\n", session, m.LevelIndex)

	gauge("gamejam_phase", "Transition phase (1 for the current one).")
	for _, p := range []string{"PLAYING", "RELOADING", "ADVANCING"} {
		v := 0
		if m.Phase == p {
			v = 1
		}
		fmt.Fprintf(w, "gamejam_phase{session=%q,phase=%q} %d\n", session, p, v)
	}

	gauge("gamejam_agents", "Registered agents.")
	fmt.Fprintf(w, "gamejam_agents{session=%q,state=%q} %d\n", session, "all", m.Agents)
	fmt.Fprintf(w, "gamejam_agents{session=%q,state=%q} %d\n", session, "non_frozen", m.NonFrozen)

	gauge("gamejam_clients", "Connected bridge and observer sessions.")
	fmt.Fprintf(w, "gamejam_clients{session=%q} %d\n", session, m.Clients)

	gauge("gamejam_clone_budget", "Clone budget for the loaded level.")
	fmt.Fprintf(w, "gamejam_clone_budget{session=%q,field=%q} %d\n", session, "max", m.MaxClones)
	fmt.Fprintf(w, "gamejam_clone_budget{session=%q,field=%q} %d\n", session, "missing", m.MissingClones)
	allowed := 0
	if m.CloningAllowed {
		allowed = 1
	}
	fmt.Fprintf(w, "gamejam_clone_budget{session=%q,field=%q} %d\n", session, "allowed", allowed)

	counter("gamejam_lifecycle_total", "Lifecycle operations since start.")
	fmt.Fprintf(w, "gamejam_lifecycle_total{session=%q,op=%q} %d\n", session, "spawned", m.SpawnedTotal)
	fmt.Fprintf(w, "gamejam_lifecycle_total{session=%q,op=%q} %d\n", session, "completed", m.CompletedTotal)
	fmt.Fprintf(w, "gamejam_lifecycle_total{session=%q,op=%q} %d\n", session, "promoted", m.PromotedTotal)

	counter("gamejam_transitions_total", "Scene requests since start.")
	fmt.Fprintf(w, "gamejam_transitions_total{session=%q,kind=%q} %d\n", session, "reload", m.ReloadTotal)
	fmt.Fprintf(w, "gamejam_transitions_total{session=%q,kind=%q} %d\n", session, "advance", m.AdvanceTotal)
	fmt.Fprintf(w, "gamejam_transitions_total{session=%q,kind=%q} %d\n", session, "reload_race", m.ReloadRaces)

	gauge("gamejam_bullets_in_flight", "Bullets currently checked out of the pool.")
	fmt.Fprintf(w, "gamejam_bullets_in_flight{session=%q} %d\n", session, m.BulletsInFlight)

	if len(m.Rejections) > 0 {
		counter("gamejam_rejections_total", "Rejected operations by error code.")
		codes := make([]string, 0, len(m.Rejections))
		for c := range m.Rejections {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		for _, c := range codes {
			fmt.Fprintf(w, "gamejam_rejections_total{session=%q,code=%q} %d\n", session, c, m.Rejections[c])
		}
	}

	gauge("gamejam_queue_depth", "Channel backlog depth.")
	fmt.Fprintf(w, "gamejam_queue_depth{session=%q,queue=%q} %d\n", session, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(w, "gamejam_queue_depth{session=%q,queue=%q} %d\n", session, "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "gamejam_queue_depth{session=%q,queue=%q} %d\n", session, "leave", m.QueueDepths.Leave)

	gauge("gamejam_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(w, "gamejam_step_ms{session=%q} %.3f\n", session, m.StepMS)

	if idx == nil {
		return
	}
	gauge("gamejam_index_queue_depth", "Index writer queue depth.")
	fmt.Fprintf(w, "gamejam_index_queue_depth{session=%q} %d\n", session, idx.QueueDepth)
	counter("gamejam_index_dropped_total", "Index entries dropped because the queue was full.")
	fmt.Fprintf(w, "gamejam_index_dropped_total{session=%q,kind=%q} %d\n", session, "tick", idx.DropTickTotal)
	fmt.Fprintf(w, "gamejam_index_dropped_total{session=%q,kind=%q} %d\n", session, "lifecycle", idx.DropLifecycleTotal)
	counter("gamejam_index_write_errors_total", "Index transaction failures.")
	fmt.Fprintf(w, "gamejam_index_write_errors_total{session=%q} %d\n", session, idx.WriteErrorTotal)
}
