package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	Transitions Transitions `yaml:"transitions"`
	Camera      Camera      `yaml:"camera"`
	Hazards     Hazards     `yaml:"hazards"`

	GoalAdvanceDelayMs int `yaml:"goal_advance_delay_ms"`
}

type Transitions struct {
	FallMs        int `yaml:"fall_ms"`
	LaserFreezeMs int `yaml:"laser_freeze_ms"`
	InstantKillMs int `yaml:"instant_kill_ms"`
	GoalReachedMs int `yaml:"goal_reached_ms"`
}

type Camera struct {
	BaseZoom          float64 `yaml:"base_zoom"`
	MinZoom           float64 `yaml:"min_zoom"`
	MaxZoom           float64 `yaml:"max_zoom"`
	ZoomOutMultiplier float64 `yaml:"zoom_out_multiplier"`
}

type Hazards struct {
	BulletPoolSize   int     `yaml:"bullet_pool_size"`
	BulletLifetimeMs int     `yaml:"bullet_lifetime_ms"`
	KillPlaneY       float64 `yaml:"kill_plane_y"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      50,
		Transitions: Transitions{
			FallMs:        1000,
			LaserFreezeMs: 1500,
			InstantKillMs: 250,
		},
		Camera: Camera{
			BaseZoom:          5,
			MinZoom:           3,
			MaxZoom:           20,
			ZoomOutMultiplier: 1.5,
		},
		Hazards: Hazards{
			BulletPoolSize:   10,
			BulletLifetimeMs: 5000,
			KillPlaneY:       -20,
		},
		GoalAdvanceDelayMs: 1500,
	}
}

// Load reads path on top of Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	tr := t.Transitions
	if tr.FallMs < 0 || tr.LaserFreezeMs < 0 || tr.InstantKillMs < 0 || tr.GoalReachedMs < 0 {
		return fmt.Errorf("transitions: durations must be >= 0")
	}
	c := t.Camera
	if c.MinZoom <= 0 || c.MaxZoom < c.MinZoom {
		return fmt.Errorf("camera: need 0 < min_zoom <= max_zoom (got %v, %v)", c.MinZoom, c.MaxZoom)
	}
	if c.ZoomOutMultiplier < 0 {
		return fmt.Errorf("camera: zoom_out_multiplier must be >= 0")
	}
	if t.Hazards.BulletPoolSize <= 0 {
		return fmt.Errorf("hazards: bullet_pool_size must be > 0")
	}
	if t.Hazards.BulletLifetimeMs <= 0 {
		return fmt.Errorf("hazards: bullet_lifetime_ms must be > 0")
	}
	if t.GoalAdvanceDelayMs < 0 {
		return fmt.Errorf("goal_advance_delay_ms must be >= 0")
	}
	return nil
}
