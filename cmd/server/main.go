package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/indexdb"
	persistlog "github.com/AQStarLilly/GameJamRemakeProject/internal/persistence/log"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/tuning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/transport/observer"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "session_1", "session id (names the data directory)")
		configDir  = flag.String("configs", "./configs", "config directory (levels.yaml, levels/, tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		startLevel = flag.Int("level", 0, "index of the first level to load")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (tick/lifecycle tables)")
		autoAck    = flag.Bool("auto_ack", false, "acknowledge scene loads internally (headless runs without a bridge)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	set, err := levels.LoadSet(*configDir)
	if err != nil {
		logger.Fatalf("load levels: %v", err)
	}
	logger.Printf("loaded %d levels from %s", set.Len(), *configDir)

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(sessionDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfigs(set, tune); err != nil {
			logger.Printf("index backend: upsert configs: %v", err)
		}
	}

	cfg := world.ConfigFromTuning(tune)
	cfg.StartLevel = *startLevel
	cfg.AutoAckLoads = *autoAck

	tickLog := persistlog.NewTickLogger(sessionDir)
	lifeLog := persistlog.NewLifecycleLogger(sessionDir)
	defer tickLog.Close()
	defer lifeLog.Close()

	w, err := world.New(cfg, set, nil, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	w.SetLifecycleLogger(multiLifecycleLogger{a: lifeLog, b: idx})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	bridge, err := ws.NewServer(w, logger)
	if err != nil {
		logger.Fatalf("bridge: %v", err)
	}
	obsSrv, err := observer.NewServer(w, logger)
	if err != nil {
		logger.Fatalf("observer: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var st *indexdb.Stats
		if idx != nil {
			s := idx.Stats()
			st = &s
		}
		writeMetrics(rw, *sessionID, w.Metrics(), st)
	})
	mux.HandleFunc("/v1/bridge", bridge.Handler())
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer", obsSrv.WSHandler())

	if envBool("GJ_ENABLE_ADMIN_HTTP", true) {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Session string             `json:"session"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				Session: *sessionID,
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		logger.Printf("admin endpoints disabled (GJ_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("GJ_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (session=%s auto_ack=%v)", *addr, *sessionID, *autoAck)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
