// Package levels loads level layouts (pads, goal, walls, hazards) from YAML.
// Each file is checked against the embedded level schema before decoding.
package levels

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/cloning"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/geom"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/hazards"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/physics"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/roster"
)

//go:embed schemas/level.schema.json
var schemaFS embed.FS

type Level struct {
	// Index is the level's position in the set; it is not read from YAML.
	Index int `yaml:"-"`

	Name       string     `yaml:"name"`
	Spawn      [3]float64 `yaml:"spawn"`
	KillPlaneY *float64   `yaml:"kill_plane_y"`
	Pads       []PadDef   `yaml:"pads"`
	Goal       GoalDef    `yaml:"goal"`
	Walls      []WallDef  `yaml:"walls"`
	Lasers     []LaserDef `yaml:"lasers"`
	Guns       []GunDef   `yaml:"guns"`
	Plates     []PlateDef `yaml:"plates"`
}

type PadDef struct {
	ID    string     `yaml:"id"`
	Index int        `yaml:"index"`
	Pos   [3]float64 `yaml:"pos"`
}

type GoalDef struct {
	ID     string     `yaml:"id"`
	Pos    [3]float64 `yaml:"pos"`
	Radius float64    `yaml:"radius"`
}

type WallDef struct {
	ID  string     `yaml:"id"`
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

type LaserDef struct {
	ID          string     `yaml:"id"`
	Origin      [3]float64 `yaml:"origin"`
	Dir         [3]float64 `yaml:"dir"`
	MaxDistance float64    `yaml:"max_distance"`
	Kind        string     `yaml:"kind"` // "freeze" | "instant"
}

type GunDef struct {
	ID              string     `yaml:"id"`
	FirePoint       [3]float64 `yaml:"fire_point"`
	Dir             [3]float64 `yaml:"dir"`
	BulletSpeed     float64    `yaml:"bullet_speed"`
	FireRateMs      int        `yaml:"fire_rate_ms"`
	BulletsPerBurst int        `yaml:"bullets_per_burst"`
	BurstPauseMs    int        `yaml:"burst_pause_ms"`
}

// PlateDef is a pressure plate that fades out the wall named by Target.
type PlateDef struct {
	ID     string     `yaml:"id"`
	Pos    [3]float64 `yaml:"pos"`
	Radius float64    `yaml:"radius"`
	Target string     `yaml:"target"`
	FadeMs int        `yaml:"fade_ms"`
}

func vec(a [3]float64) geom.Vec3 { return geom.V(a[0], a[1], a[2]) }

func (l *Level) SpawnPos() geom.Vec3 { return vec(l.Spawn) }

func (l *Level) ClonePads() []cloning.Pad {
	out := make([]cloning.Pad, 0, len(l.Pads))
	for _, p := range l.Pads {
		out = append(out, cloning.Pad{ID: p.ID, Index: p.Index, Pos: vec(p.Pos)})
	}
	return out
}

func (l *Level) WallBoxes() []physics.Box {
	out := make([]physics.Box, 0, len(l.Walls))
	for _, w := range l.Walls {
		out = append(out, physics.Box{ID: w.ID, Tag: "Wall", Layer: physics.LayerWall, Min: vec(w.Min), Max: vec(w.Max)})
	}
	return out
}

func (l *Level) LaserEmitters() []hazards.Laser {
	out := make([]hazards.Laser, 0, len(l.Lasers))
	for _, d := range l.Lasers {
		cause := roster.CauseLaserFreeze
		if d.Kind == "instant" {
			cause = roster.CauseInstantKill
		}
		out = append(out, hazards.Laser{ID: d.ID, Origin: vec(d.Origin), Dir: vec(d.Dir), MaxDistance: d.MaxDistance, Cause: cause})
	}
	return out
}

func (l *Level) GunEmitters() []hazards.Gun {
	out := make([]hazards.Gun, 0, len(l.Guns))
	for _, d := range l.Guns {
		g := hazards.DefaultGun(d.ID, vec(d.FirePoint), vec(d.Dir))
		if d.BulletSpeed > 0 {
			g.BulletSpeed = d.BulletSpeed
		}
		if d.FireRateMs > 0 {
			g.FireRate = time.Duration(d.FireRateMs) * time.Millisecond
		}
		if d.BulletsPerBurst > 0 {
			g.BulletsPerBurst = d.BulletsPerBurst
		}
		if d.BurstPauseMs > 0 {
			g.BurstPause = time.Duration(d.BurstPauseMs) * time.Millisecond
		}
		out = append(out, g)
	}
	return out
}

func (l *Level) PressurePlates() []hazards.Plate {
	out := make([]hazards.Plate, 0, len(l.Plates))
	for _, d := range l.Plates {
		out = append(out, hazards.Plate{
			ID:     d.ID,
			Pos:    vec(d.Pos),
			Radius: d.Radius,
			Target: d.Target,
			Fade:   time.Duration(d.FadeMs) * time.Millisecond,
		})
	}
	return out
}

// KillPlane returns the level's kill plane, falling back to def.
func (l *Level) KillPlane(def float64) *hazards.KillPlane {
	if l.KillPlaneY != nil {
		return &hazards.KillPlane{Y: *l.KillPlaneY}
	}
	return &hazards.KillPlane{Y: def}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func levelSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := schemaFS.ReadFile("schemas/level.schema.json")
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource("level.schema.json", bytes.NewReader(b)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("level.schema.json")
	})
	return schema, schemaErr
}

// Parse validates raw YAML against the level schema, then decodes it.
func Parse(raw []byte) (*Level, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	// Round-trip through JSON so the validator sees float64 numbers and
	// string-keyed maps.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var jdoc any
	if err := json.Unmarshal(js, &jdoc); err != nil {
		return nil, err
	}
	s, err := levelSchema()
	if err != nil {
		return nil, fmt.Errorf("level schema: %w", err)
	}
	if err := s.Validate(jdoc); err != nil {
		return nil, err
	}

	var l Level
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	if err := l.check(); err != nil {
		return nil, err
	}
	return &l, nil
}

// check covers the rules the schema cannot express.
func (l *Level) check() error {
	ids := map[string]bool{}
	idx := map[int]bool{}
	for _, p := range l.Pads {
		if ids[p.ID] {
			return fmt.Errorf("duplicate pad id %q", p.ID)
		}
		if idx[p.Index] {
			return fmt.Errorf("duplicate pad index %d", p.Index)
		}
		ids[p.ID] = true
		idx[p.Index] = true
	}
	walls := map[string]bool{}
	for _, w := range l.Walls {
		for i := 0; i < 3; i++ {
			if w.Min[i] > w.Max[i] {
				return fmt.Errorf("wall %s: min > max on axis %d", w.ID, i)
			}
		}
		walls[w.ID] = true
	}
	plates := map[string]bool{}
	for _, p := range l.Plates {
		if plates[p.ID] {
			return fmt.Errorf("duplicate plate id %q", p.ID)
		}
		plates[p.ID] = true
		if !walls[p.Target] {
			return fmt.Errorf("plate %s: unknown target wall %q", p.ID, p.Target)
		}
	}
	return nil
}

func Load(path string) (*Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return l, nil
}

type Set struct {
	Levels []*Level
}

type setFile struct {
	Levels []string `yaml:"levels"`
}

// LoadSet reads <dir>/levels.yaml, an ordered list of files under
// <dir>/levels/.
func LoadSet(dir string) (*Set, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "levels.yaml"))
	if err != nil {
		return nil, err
	}
	var f setFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("levels.yaml: %w", err)
	}
	if len(f.Levels) == 0 {
		return nil, fmt.Errorf("levels.yaml: no levels listed")
	}
	set := &Set{}
	for i, name := range f.Levels {
		l, err := Load(filepath.Join(dir, "levels", name))
		if err != nil {
			return nil, err
		}
		l.Index = i
		set.Levels = append(set.Levels, l)
	}
	return set, nil
}

func (s *Set) Len() int { return len(s.Levels) }

func (s *Set) At(i int) (*Level, bool) {
	if i < 0 || i >= len(s.Levels) {
		return nil, false
	}
	return s.Levels[i], true
}

// Next is the index that follows i; the last level wraps to the first.
func (s *Set) Next(i int) int {
	if len(s.Levels) == 0 {
		return 0
	}
	return (i + 1) % len(s.Levels)
}
