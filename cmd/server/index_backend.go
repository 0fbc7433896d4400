package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/indexdb"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/tuning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.LifecycleLogger
	Close() error
	UpsertConfigs(set *levels.Set, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(sessionDir string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GJ_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		logger.Printf("index backend disabled (GJ_INDEX_BACKEND=%s)", backend)
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(sessionDir, "index", "session.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported GJ_INDEX_BACKEND: %s", backend)
	}
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiLifecycleLogger struct {
	a world.LifecycleLogger
	b world.LifecycleLogger
}

func (m multiLifecycleLogger) WriteLifecycle(entry world.LifecycleEntry) error {
	if m.a != nil {
		_ = m.a.WriteLifecycle(entry)
	}
	if m.b != nil {
		_ = m.b.WriteLifecycle(entry)
	}
	return nil
}
