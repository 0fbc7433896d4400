package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/camera"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/cloning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/hazards"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/levels"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/lifecycle"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/physics"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/transition"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/tuning"
)

type Config struct {
	TickRateHz int
	StartLevel int
	PrimaryID  string

	Durations        lifecycle.Durations
	Camera           camera.Config
	GoalAdvanceDelay time.Duration

	BulletPoolSize int
	BulletLifetime time.Duration
	KillPlaneY     float64
	AgentRadius    float64

	// AutoAckLoads makes the world acknowledge its own scene requests on the
	// next tick. Used when no external loader is connected.
	AutoAckLoads bool
}

func DefaultConfig() Config {
	return ConfigFromTuning(tuning.Defaults())
}

func ConfigFromTuning(t tuning.Tuning) Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Config{
		TickRateHz: t.TickRateHz,
		PrimaryID:  "P1",
		Durations: lifecycle.Durations{
			Fall:        ms(t.Transitions.FallMs),
			LaserFreeze: ms(t.Transitions.LaserFreezeMs),
			InstantKill: ms(t.Transitions.InstantKillMs),
			GoalReached: ms(t.Transitions.GoalReachedMs),
		},
		Camera: camera.Config{
			BaseZoom:          t.Camera.BaseZoom,
			MinZoom:           t.Camera.MinZoom,
			MaxZoom:           t.Camera.MaxZoom,
			ZoomOutMultiplier: t.Camera.ZoomOutMultiplier,
		},
		GoalAdvanceDelay: ms(t.GoalAdvanceDelayMs),
		BulletPoolSize:   t.Hazards.BulletPoolSize,
		BulletLifetime:   ms(t.Hazards.BulletLifetimeMs),
		KillPlaneY:       t.Hazards.KillPlaneY,
		AgentRadius:      0.5,
	}
}

// World is the coordinator: it owns the roster and wires the lifecycle,
// cloning, camera and transition components together in a fixed per-tick
// order. All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    Config
	set    *levels.Set
	logger *log.Logger

	tick atomic.Uint64

	roster  *roster.Registry
	life    *lifecycle.Machine
	cloning *cloning.Coordinator
	camera  *camera.Selector
	trigger *transition.Trigger
	space   *physics.Space
	hazards *hazards.System

	loader SceneLoader

	level      *levels.Level
	levelIndex int
	runID      string

	// res collects what happened during the current tick.
	res StepResult
	// pendingAck is an internal LOAD_COMPLETED queued by AutoAckLoads.
	pendingAck *int

	clients map[string]*clientState

	inbox chan EventEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	tickLogger      TickLogger
	lifecycleLogger LifecycleLogger

	rejections     map[string]uint64
	spawnedTotal   uint64
	completedTotal uint64
	promotedTotal  uint64

	metrics atomic.Value
}

type clientState struct {
	ID      string
	Role    string
	Name    string
	Out     chan []byte
	Control chan []byte
}

func New(cfg Config, set *levels.Set, loader SceneLoader, logger *log.Logger) (*World, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("world: no levels")
	}
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("world: tick rate must be > 0")
	}
	if cfg.PrimaryID == "" {
		cfg.PrimaryID = "P1"
	}
	if cfg.AgentRadius <= 0 {
		cfg.AgentRadius = 0.5
	}
	first, ok := set.At(cfg.StartLevel)
	if !ok {
		return nil, fmt.Errorf("world: start level %d out of range (have %d)", cfg.StartLevel, set.Len())
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	reg := roster.NewRegistry()
	space := physics.NewSpace()
	w := &World{
		cfg:        cfg,
		set:        set,
		logger:     logger,
		roster:     reg,
		life:       lifecycle.New(reg, cfg.Durations),
		cloning:    cloning.New(reg),
		camera:     camera.New(reg, cfg.Camera),
		space:      space,
		hazards:    hazards.NewSystem(space, hazards.Config{BulletPoolSize: cfg.BulletPoolSize, BulletLifetime: cfg.BulletLifetime, KillPlane: &hazards.KillPlane{Y: cfg.KillPlaneY}}),
		loader:     loader,
		clients:    map[string]*clientState{},
		inbox:      make(chan EventEnvelope, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		stop:       make(chan struct{}),
		rejections: map[string]uint64{},
	}
	w.trigger = transition.New(sceneRelay{w}, cfg.GoalAdvanceDelay)
	if err := w.loadLevel(first); err != nil {
		return nil, err
	}
	w.publishMetrics(0, 0)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)           { w.tickLogger = l }
func (w *World) SetLifecycleLogger(l LifecycleLogger) { w.lifecycleLogger = l }

func (w *World) Inbox() chan<- EventEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest    { return w.join }
func (w *World) Leave() chan<- string        { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) TickInterval() time.Duration {
	return time.Second / time.Duration(w.cfg.TickRateHz)
}

func (w *World) LevelIndex() int { return w.levelIndex }

func (w *World) RunID() string { return w.runID }

// CurrentTarget is the camera follow point and zoom hint.
func (w *World) CurrentTarget() (geom.Vec3, float64) { return w.camera.CurrentTarget() }

// ActiveCount is the number of agents still in play (not frozen or fading).
func (w *World) ActiveCount() int { return w.roster.ActiveCount() }

func (w *World) Roster() []*roster.Agent { return w.roster.Agents() }

func (w *World) Budget() cloning.Budget { return w.cloning.Budget() }

func (w *World) Phase() transition.Phase { return w.trigger.Phase() }

// loadLevel installs l from scratch: fresh roster with a single primary at
// the spawn point, re-armed pads, a reset camera and a new run id.
func (w *World) loadLevel(l *levels.Level) error {
	w.roster.Reset()
	if err := w.cloning.Load(l.ClonePads()); err != nil {
		return fmt.Errorf("level %s: %w", l.Name, err)
	}
	w.space.ClearSpheres()
	w.space.ClearBoxes()
	for _, b := range l.WallBoxes() {
		w.space.AddBox(b)
	}
	w.hazards.Load(l.LaserEmitters(), l.GunEmitters(), l.KillPlane(w.cfg.KillPlaneY))
	w.hazards.LoadPlates(l.PressurePlates())
	primary := &roster.Agent{
		ID:       w.cfg.PrimaryID,
		Kind:     roster.KindPrimary,
		State:    roster.StateActive,
		Pos:      l.SpawnPos(),
		BornTick: w.tick.Load(),
	}
	if err := w.roster.Register(primary); err != nil {
		return err
	}
	w.camera.Reset()
	w.camera.Update()
	w.trigger.OnLoadCompleted()

	w.level = l
	w.levelIndex = l.Index
	w.runID = uuid.NewString()
	w.logger.Printf("level: loaded index=%d name=%s run=%s pads=%d", l.Index, l.Name, w.runID, len(l.Pads))
	w.writeLifecycle(LifecycleEntry{Kind: EntryLoad, AgentID: primary.ID, AgentKind: primary.Kind.String(), Pos: primary.Pos.ToArray(), Reason: l.Name})
	return nil
}

func (w *World) writeLifecycle(e LifecycleEntry) {
	if w.lifecycleLogger == nil {
		return
	}
	e.Tick = w.tick.Load()
	e.LevelIndex = w.levelIndex
	_ = w.lifecycleLogger.WriteLifecycle(e)
}

// sceneRelay sits between the transition trigger and the external loader so
// the world can record, log and broadcast scene requests.
type sceneRelay struct{ w *World }

func (r sceneRelay) RequestReload() {
	w := r.w
	w.res.ReloadRequested = true
	w.logger.Printf("transition: reload level=%d tick=%d", w.levelIndex, w.tick.Load())
	w.writeLifecycle(LifecycleEntry{Kind: EntryReload})
	w.broadcastScene(protocol.SceneReload, w.levelIndex)
	if w.loader != nil {
		w.loader.RequestReload()
	}
	if w.cfg.AutoAckLoads {
		idx := w.levelIndex
		w.pendingAck = &idx
	}
}

func (r sceneRelay) RequestAdvance(next int) {
	w := r.w
	w.res.AdvanceRequested = true
	w.res.AdvanceIndex = next
	w.logger.Printf("transition: advance level=%d next=%d tick=%d", w.levelIndex, next, w.tick.Load())
	w.writeLifecycle(LifecycleEntry{Kind: EntryAdvance, Reason: fmt.Sprintf("next=%d", next)})
	w.broadcastScene(protocol.SceneAdvance, next)
	if w.loader != nil {
		w.loader.RequestAdvance(next)
	}
	if w.cfg.AutoAckLoads {
		w.pendingAck = &next
	}
}
