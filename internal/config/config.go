package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/brazilnut/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.005 / 50.0 // collision time / 50
	DefaultDuration  = 25.0
	DefaultSaveCount = 100

	DefaultLargeRadius = 0.08
	DefaultSmallRadius = 0.02
	DefaultMargin      = 0.2
	DefaultFlowRate    = 1.0

	DefaultStopFlow      = 1.0
	DefaultAmplitude     = 1.0
	DefaultPulseInterval = 0.25
	DefaultKickStart     = 1.5
	DefaultStopKick      = 20.0
)

type Config struct {
	Name      string          `json:"name" yaml:"name" toml:"name"`
	Container ContainerConfig `json:"container" yaml:"container" toml:"container"`
	Gravity   dynamo.Vec3     `json:"gravity" yaml:"gravity" toml:"gravity"`
	Dt        float64         `json:"dt" yaml:"dt" toml:"dt"`
	Duration  float64         `json:"duration" yaml:"duration" toml:"duration"`
	SaveCount int             `json:"save_count" yaml:"save_count" toml:"save_count"`
	Particles ParticleConfig  `json:"particles" yaml:"particles" toml:"particles"`
	Insertion InsertionConfig `json:"insertion" yaml:"insertion" toml:"insertion"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" toml:"schedule"`
	Species   SpeciesConfig   `json:"species" yaml:"species" toml:"species"`
}

// ContainerConfig is the axis-aligned bounding box of the container.
type ContainerConfig struct {
	Min dynamo.Vec3 `json:"min" yaml:"min" toml:"min"`
	Max dynamo.Vec3 `json:"max" yaml:"max" toml:"max"`
}

type ParticleConfig struct {
	LargeRadius float64 `json:"large_radius" yaml:"large_radius" toml:"large_radius"`
	SmallRadius float64 `json:"small_radius" yaml:"small_radius" toml:"small_radius"`
}

type InsertionConfig struct {
	// Margin is the half-width of the insertion cube around the container midpoint.
	Margin   float64 `json:"margin" yaml:"margin" toml:"margin"`
	FlowRate float64 `json:"flow_rate" yaml:"flow_rate" toml:"flow_rate"`
}

type ScheduleConfig struct {
	StopFlow      float64 `json:"stop_flow" yaml:"stop_flow" toml:"stop_flow"`
	Amplitude     float64 `json:"amplitude" yaml:"amplitude" toml:"amplitude"`
	PulseInterval float64 `json:"pulse_interval" yaml:"pulse_interval" toml:"pulse_interval"`
	KickStart     float64 `json:"kick_start" yaml:"kick_start" toml:"kick_start"`
	StopKick      float64 `json:"stop_kick" yaml:"stop_kick" toml:"stop_kick"`
}

// SpeciesConfig holds the linear viscoelastic friction contact parameters
// shared by every particle and wall.
type SpeciesConfig struct {
	Density            float64 `json:"density" yaml:"density" toml:"density"`
	Stiffness          float64 `json:"stiffness" yaml:"stiffness" toml:"stiffness"`
	Dissipation        float64 `json:"dissipation" yaml:"dissipation" toml:"dissipation"`
	SlidingFriction    float64 `json:"sliding_friction" yaml:"sliding_friction" toml:"sliding_friction"`
	SlidingStiffness   float64 `json:"sliding_stiffness" yaml:"sliding_stiffness" toml:"sliding_stiffness"`
	SlidingDissipation float64 `json:"sliding_dissipation" yaml:"sliding_dissipation" toml:"sliding_dissipation"`
	RollingFriction    float64 `json:"rolling_friction" yaml:"rolling_friction" toml:"rolling_friction"`
	RollingStiffness   float64 `json:"rolling_stiffness" yaml:"rolling_stiffness" toml:"rolling_stiffness"`
	RollingDissipation float64 `json:"rolling_dissipation" yaml:"rolling_dissipation" toml:"rolling_dissipation"`
	TorsionFriction    float64 `json:"torsion_friction" yaml:"torsion_friction" toml:"torsion_friction"`
	TorsionStiffness   float64 `json:"torsion_stiffness" yaml:"torsion_stiffness" toml:"torsion_stiffness"`
	TorsionDissipation float64 `json:"torsion_dissipation" yaml:"torsion_dissipation" toml:"torsion_dissipation"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "brazil_nut_cylinder",
		Container: ContainerConfig{
			Min: dynamo.Vec3{X: 0, Y: 0, Z: 0},
			Max: dynamo.Vec3{X: 1, Y: 1, Z: 3},
		},
		Gravity:   dynamo.Vec3{Z: -9.8},
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		SaveCount: DefaultSaveCount,
		Particles: ParticleConfig{
			LargeRadius: DefaultLargeRadius,
			SmallRadius: DefaultSmallRadius,
		},
		Insertion: InsertionConfig{
			Margin:   DefaultMargin,
			FlowRate: DefaultFlowRate,
		},
		Schedule: ScheduleConfig{
			StopFlow:      DefaultStopFlow,
			Amplitude:     DefaultAmplitude,
			PulseInterval: DefaultPulseInterval,
			KickStart:     DefaultKickStart,
			StopKick:      DefaultStopKick,
		},
		Species: SpeciesConfig{
			Density:            2000,
			Stiffness:          1e5,
			Dissipation:        0.63,
			SlidingFriction:    0.5,
			SlidingStiffness:   1.2e4,
			SlidingDissipation: 6.3e-2,
			RollingFriction:    0.2,
			RollingStiffness:   1.2e4,
			RollingDissipation: 6.3e-2,
			TorsionFriction:    0.1,
			TorsionStiffness:   1.2e4,
		},
	}
}

// Load reads a yaml or toml file on top of DefaultConfig. The format is
// chosen by extension; anything other than .toml is parsed as yaml.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy; Config holds no reference types.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Mid returns the midpoint of the container bounding box.
func (c *Config) Mid() dynamo.Vec3 {
	return c.Container.Min.Add(c.Container.Max).Scale(0.5)
}

// Steps is the number of fixed steps needed to cover Duration.
func (c *Config) Steps() int {
	return int(c.Duration / c.Dt)
}

// MaxSteps bounds Duration/Dt so the step count fits comfortably in an int.
const MaxSteps = 1_000_000_000

// Validate rejects misconfiguration before a run starts. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(sentinel error, format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, sentinel)...))
	}

	// NaN fails every ordered comparison below, so non-finite values are
	// rejected up front and each positivity check is written as !(x > 0).
	for _, f := range []struct {
		name     string
		v        float64
		sentinel error
	}{
		{"dt", c.Dt, dynamo.ErrInvalidConfig},
		{"duration", c.Duration, dynamo.ErrInvalidConfig},
		{"large_radius", c.Particles.LargeRadius, dynamo.ErrInvalidConfig},
		{"small_radius", c.Particles.SmallRadius, dynamo.ErrInvalidConfig},
		{"insertion margin", c.Insertion.Margin, dynamo.ErrInvalidConfig},
		{"insertion flow rate", c.Insertion.FlowRate, dynamo.ErrInvalidConfig},
		{"stop_flow", c.Schedule.StopFlow, dynamo.ErrInvalidSchedule},
		{"amplitude", c.Schedule.Amplitude, dynamo.ErrInvalidSchedule},
		{"pulse_interval", c.Schedule.PulseInterval, dynamo.ErrInvalidSchedule},
		{"kick_start", c.Schedule.KickStart, dynamo.ErrInvalidSchedule},
		{"stop_kick", c.Schedule.StopKick, dynamo.ErrInvalidSchedule},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			invalid(f.sentinel, "%s must be finite, got %g", f.name, f.v)
		}
	}
	if !c.Gravity.IsValid() {
		invalid(dynamo.ErrInvalidConfig, "gravity must be finite, got %v", c.Gravity)
	}

	lo, hi := c.Container.Min, c.Container.Max
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		invalid(dynamo.ErrInvalidBounds, "container max %v must exceed min %v on every axis", hi, lo)
	}
	if !lo.IsValid() || !hi.IsValid() {
		invalid(dynamo.ErrInvalidBounds, "container bounds must be finite")
	}

	if !(c.Dt > 0) {
		invalid(dynamo.ErrInvalidConfig, "dt must be positive, got %g", c.Dt)
	}
	if !(c.Duration > 0) {
		invalid(dynamo.ErrInvalidConfig, "duration must be positive, got %g", c.Duration)
	} else if c.Dt > 0 && !(c.Duration/c.Dt <= MaxSteps) {
		invalid(dynamo.ErrInvalidConfig, "duration %g at dt %g exceeds %d steps", c.Duration, c.Dt, MaxSteps)
	}
	if c.SaveCount <= 0 {
		invalid(dynamo.ErrInvalidConfig, "save_count must be positive, got %d", c.SaveCount)
	}

	p := c.Particles
	if !(p.LargeRadius > 0) || !(p.SmallRadius > 0) {
		invalid(dynamo.ErrInvalidConfig, "particle radii must be positive, got large=%g small=%g", p.LargeRadius, p.SmallRadius)
	} else if p.LargeRadius < p.SmallRadius {
		invalid(dynamo.ErrInvalidConfig, "large radius %g is smaller than small radius %g", p.LargeRadius, p.SmallRadius)
	}
	if cyl := (hi.X - lo.X) / 4; hi.X > lo.X && p.LargeRadius >= cyl {
		invalid(dynamo.ErrInvalidConfig, "large radius %g does not fit the cylinder of radius %g", p.LargeRadius, cyl)
	}

	in := c.Insertion
	if !(in.Margin > 0) {
		invalid(dynamo.ErrInvalidConfig, "insertion margin must be positive, got %g", in.Margin)
	} else {
		mid := c.Mid()
		if mid.X-in.Margin < lo.X || mid.X+in.Margin > hi.X ||
			mid.Y-in.Margin < lo.Y || mid.Y+in.Margin > hi.Y ||
			mid.Z-in.Margin < lo.Z || mid.Z+in.Margin > hi.Z {
			invalid(dynamo.ErrInvalidConfig, "insertion region of margin %g leaves the container", in.Margin)
		}
	}
	if !(in.FlowRate > 0) {
		invalid(dynamo.ErrInvalidConfig, "insertion flow rate must be positive, got %g", in.FlowRate)
	}

	s := c.Schedule
	if !(s.Amplitude > 0) {
		invalid(dynamo.ErrInvalidSchedule, "amplitude must be positive, got %g", s.Amplitude)
	}
	if !(s.PulseInterval > 0) {
		invalid(dynamo.ErrInvalidSchedule, "pulse interval must be positive, got %g", s.PulseInterval)
	} else if c.Dt > 0 && s.PulseInterval <= c.Dt {
		invalid(dynamo.ErrInvalidSchedule, "pulse interval %g must exceed dt %g", s.PulseInterval, c.Dt)
	}
	if !(s.StopFlow > 0) {
		invalid(dynamo.ErrInvalidSchedule, "stop_flow must be positive, got %g", s.StopFlow)
	}
	if !(s.KickStart >= s.StopFlow) {
		invalid(dynamo.ErrInvalidSchedule, "kick_start %g precedes stop_flow %g", s.KickStart, s.StopFlow)
	}
	if !(s.StopKick > s.KickStart) {
		invalid(dynamo.ErrInvalidSchedule, "stop_kick %g must come after kick_start %g", s.StopKick, s.KickStart)
	}

	return errors.Join(errs...)
}
