package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "lifecycle":
			lifecycleCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "sessions"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// lifecycleCmd prints lifecycle log entries, optionally filtered by agent
// and kind, as JSON lines.
func lifecycleCmd(args []string) {
	fs := flag.NewFlagSet("lifecycle", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "", "session id")
	agent := fs.String("agent", "", "agent id filter (optional)")
	kind := fs.String("kind", "", "entry kind filter, e.g. SPAWN, REMOVE (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*session) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}
	dir := filepath.Join(*dataDir, "sessions", *session, "lifecycle")
	files, err := filepath.Glob(filepath.Join(dir, "lifecycle-*.jsonl.zst"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "glob:", err)
		os.Exit(1)
	}
	sort.Strings(files)
	for _, path := range files {
		err := readLifecycle(path, func(e world.LifecycleEntry) {
			if !matchLifecycle(e, *agent, *kind) {
				return
			}
			printJSON(e)
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}

func matchLifecycle(e world.LifecycleEntry, agent, kind string) bool {
	if agent != "" && e.AgentID != agent {
		return false
	}
	if kind != "" && !strings.EqualFold(e.Kind, kind) {
		return false
	}
	return true
}

func readLifecycle(path string, fn func(world.LifecycleEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	return decodeLifecycle(dec, fn)
}

func decodeLifecycle(r io.Reader, fn func(world.LifecycleEntry)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e world.LifecycleEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return err
		}
		fn(e)
	}
	return sc.Err()
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
