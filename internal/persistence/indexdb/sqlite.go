package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/tuning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the tick and lifecycle
// logs. Writes are queued and applied by a single writer goroutine; when the
// queue is full, entries are dropped and counted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick      atomic.Uint64
	dropLifecycle atomic.Uint64
	writeErr      atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqLifecycle
)

type req struct {
	kind reqKind

	tick      world.TickLogEntry
	lifecycle world.LifecycleEntry
}

// Stats reports queue health for /metrics.
type Stats struct {
	QueueDepth         int
	QueueCapacity      int
	DropTickTotal      uint64
	DropLifecycleTotal uint64
	WriteErrorTotal    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			level INTEGER NOT NULL,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent_tick ON events(agent_id, tick);`,
		`CREATE TABLE IF NOT EXISTS lifecycle (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			level INTEGER NOT NULL,
			kind TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			cause TEXT,
			code TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_agent_tick ON lifecycle(agent_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_kind_tick ON lifecycle(kind, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteLifecycle(entry world.LifecycleEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqLifecycle, lifecycle: entry}:
	default:
		s.dropLifecycle.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropTickTotal:      s.dropTick.Load(),
		DropLifecycleTotal: s.dropLifecycle.Load(),
		WriteErrorTotal:    s.writeErr.Load(),
	}
}

// UpsertConfigs records the level set and tuning the server started with.
func (s *SQLiteIndex) UpsertConfigs(set *levels.Set, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name string
		json []byte
	}
	var rows []kv
	if b, err := json.Marshal(tune); err == nil {
		rows = append(rows, kv{name: "tuning", json: b})
	}
	if set != nil {
		for _, l := range set.Levels {
			b, err := json.Marshal(l)
			if err != nil {
				return err
			}
			rows = append(rows, kv{name: fmt.Sprintf("level/%02d/%s", l.Index, l.Name), json: b})
		}
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		sum := sha256.Sum256(r.json)
		if _, err := stmt.Exec(r.name, hex.EncodeToString(sum[:]), string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,level,digest,events,raw_json) VALUES(?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(tick,seq,kind,agent_id,raw_json) VALUES(?,?,?,?,?)`)
	insertLifecycle, _ := s.db.Prepare(`INSERT OR REPLACE INTO lifecycle(tick,seq,level,kind,agent_id,cause,code,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEvent, insertLifecycle} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastLifeTick uint64
		lifeSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.writeErr.Add(1)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErr.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeErr.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e := r.tick
			b, _ := json.Marshal(e)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(int64(e.Tick), e.LevelIndex, e.Digest, len(e.Events), string(b)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for i, ev := range e.Events {
				if insertEvent == nil {
					break
				}
				raw, _ := json.Marshal(ev)
				if _, err := tx.Stmt(insertEvent).Exec(int64(e.Tick), i, ev.Kind, ev.AgentID, string(raw)); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqLifecycle:
			a := r.lifecycle
			if a.Tick != lastLifeTick {
				lastLifeTick = a.Tick
				lifeSeq = 0
			}
			seq := lifeSeq
			lifeSeq++
			raw, _ := json.Marshal(a)
			if insertLifecycle != nil {
				if _, err := tx.Stmt(insertLifecycle).Exec(int64(a.Tick), seq, a.LevelIndex, a.Kind, a.AgentID, a.Cause, a.Code, string(raw)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
