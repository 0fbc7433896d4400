package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "", "session id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	agent := fs.String("agent", "", "agent_id filter (lifecycle, events)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "summary"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*session) == "" {
			fmt.Fprintln(os.Stderr, "missing -session or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "sessions", *session, "index", "session.sqlite")
	}
	if *limit <= 0 {
		*limit = 20
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, q, *agent, *limit, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func runQuery(db *sql.DB, q, agent string, limit int, emit func(any)) error {
	switch q {
	case "summary":
		return querySummary(db, emit)
	case "lifecycle":
		return queryLifecycle(db, agent, limit, emit)
	case "rejections":
		return queryRejections(db, emit)
	case "ticks":
		return queryTicks(db, limit, emit)
	default:
		return fmt.Errorf("unknown query %q (summary|lifecycle|rejections|ticks)", q)
	}
}

func querySummary(db *sql.DB, emit func(any)) error {
	var r struct {
		Ticks    int64 `json:"ticks"`
		LastTick int64 `json:"last_tick"`
		Events   int64 `json:"events"`
		Spawns   int64 `json:"spawns"`
		Removals int64 `json:"removals"`
		Reloads  int64 `json:"reloads"`
		Advances int64 `json:"advances"`
	}
	if err := db.QueryRow(`SELECT COUNT(*), COALESCE(MAX(tick),0) FROM ticks`).Scan(&r.Ticks, &r.LastTick); err != nil {
		return err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&r.Events); err != nil {
		return err
	}
	counts := map[string]*int64{"SPAWN": &r.Spawns, "REMOVE": &r.Removals, "RELOAD": &r.Reloads, "ADVANCE": &r.Advances}
	for kind, dst := range counts {
		if err := db.QueryRow(`SELECT COUNT(*) FROM lifecycle WHERE kind=?`, kind).Scan(dst); err != nil {
			return err
		}
	}
	emit(r)
	return nil
}

func queryLifecycle(db *sql.DB, agent string, limit int, emit func(any)) error {
	var (
		rows *sql.Rows
		err  error
	)
	if agent != "" {
		rows, err = db.Query(`SELECT raw_json FROM lifecycle WHERE agent_id=? ORDER BY tick DESC, seq DESC LIMIT ?`, agent, limit)
	} else {
		rows, err = db.Query(`SELECT raw_json FROM lifecycle ORDER BY tick DESC, seq DESC LIMIT ?`, limit)
	}
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		emit(rawJSON(raw))
	}
	return rows.Err()
}

func queryRejections(db *sql.DB, emit func(any)) error {
	rows, err := db.Query(`SELECT code, COUNT(*) FROM lifecycle WHERE kind='REJECT' GROUP BY code ORDER BY code`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Code  string `json:"code"`
			Count int64  `json:"count"`
		}
		if err := rows.Scan(&r.Code, &r.Count); err != nil {
			return err
		}
		emit(r)
	}
	return rows.Err()
}

func queryTicks(db *sql.DB, limit int, emit func(any)) error {
	rows, err := db.Query(`SELECT tick,level,digest,events FROM ticks WHERE events > 0 ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Tick   int64  `json:"tick"`
			Level  int    `json:"level"`
			Digest string `json:"digest"`
			Events int    `json:"events"`
		}
		if err := rows.Scan(&r.Tick, &r.Level, &r.Digest, &r.Events); err != nil {
			return err
		}
		emit(r)
	}
	return rows.Err()
}

// rawJSON prints stored JSON verbatim.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) { return []byte(r), nil }
