package sim

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds the tunables of the simulation and reward function.
// It maps onto the [Simulation] section of the racer INI file.
type Config struct {
	Width  int `ini:"width"`
	Height int `ini:"height"`

	MaxRayLength int `ini:"max_ray_length"`

	SpawnHeading  float64 `ini:"spawn_heading"`
	SpawnAttempts int     `ini:"spawn_attempts"`

	MinSpeed     float64 `ini:"min_speed"`
	MaxSpeed     float64 `ini:"max_speed"`
	InitialSpeed float64 `ini:"initial_speed"`
	SpeedStep    float64 `ini:"speed_step"`
	TurnStep     float64 `ini:"turn_step"`

	OffTrackPenalty float64 `ini:"off_track_penalty"`
	LoopPenalty     float64 `ini:"loop_penalty"`
	StallPenalty    float64 `ini:"stall_penalty"`
	SpinPenalty     float64 `ini:"spin_penalty"`

	LoopRepeatLimit int     `ini:"loop_repeat_limit"`
	ProgressEpsilon float64 `ini:"progress_epsilon"`
	StallTickLimit  int     `ini:"stall_tick_limit"`
	MaxRotation     float64 `ini:"max_rotation"`
	SpeedDivisor    float64 `ini:"speed_divisor"`
	RadarDivisor    float64 `ini:"radar_divisor"`

	MaxTicks int     `ini:"max_ticks"` // 0 runs until every vehicle is dead
	TickRate float64 `ini:"tick_rate"` // ticks per second, 0 = unthrottled
}

// DefaultConfig returns the values the racer was tuned with.
func DefaultConfig() Config {
	return Config{
		Width:           1280,
		Height:          720,
		MaxRayLength:    500,
		SpawnHeading:    90,
		SpawnAttempts:   5000,
		MinSpeed:        1,
		MaxSpeed:        6,
		InitialSpeed:    1,
		SpeedStep:       0.5,
		TurnStep:        10,
		OffTrackPenalty: -20,
		LoopPenalty:     -10,
		StallPenalty:    -15,
		SpinPenalty:     -15,
		LoopRepeatLimit: 5,
		ProgressEpsilon: 1,
		StallTickLimit:  50,
		MaxRotation:     1080,
		SpeedDivisor:    5,
		RadarDivisor:    2100,
		MaxTicks:        20000,
	}
}

// LoadConfig reads the [Simulation] section of an INI file on top of
// DefaultConfig. A missing section leaves the defaults untouched.
func LoadConfig(filePath string) (Config, error) {
	cfg := DefaultConfig()

	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	if f.HasSection("Simulation") {
		if err := f.Section("Simulation").MapTo(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to map [Simulation] section: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("config error: width and height must be positive (got %dx%d)", c.Width, c.Height)
	case c.MaxRayLength <= 0:
		return fmt.Errorf("config error: max_ray_length must be positive")
	case c.SpawnAttempts <= 0:
		return fmt.Errorf("config error: spawn_attempts must be positive")
	case c.MinSpeed <= 0 || c.MaxSpeed < c.MinSpeed:
		return fmt.Errorf("config error: speed bounds [%g,%g] are invalid", c.MinSpeed, c.MaxSpeed)
	case c.InitialSpeed < c.MinSpeed || c.InitialSpeed > c.MaxSpeed:
		return fmt.Errorf("config error: initial_speed %g outside [%g,%g]", c.InitialSpeed, c.MinSpeed, c.MaxSpeed)
	case c.SpeedStep <= 0 || c.TurnStep <= 0:
		return fmt.Errorf("config error: speed_step and turn_step must be positive")
	case c.LoopRepeatLimit <= 0 || c.LoopRepeatLimit >= historySize:
		return fmt.Errorf("config error: loop_repeat_limit must be in [1,%d]", historySize-1)
	case c.StallTickLimit <= 0:
		return fmt.Errorf("config error: stall_tick_limit must be positive")
	case c.MaxRotation <= 0:
		return fmt.Errorf("config error: max_rotation must be positive")
	case c.SpeedDivisor == 0 || c.RadarDivisor == 0:
		return fmt.Errorf("config error: speed_divisor and radar_divisor cannot be zero")
	case c.MaxTicks < 0 || c.TickRate < 0:
		return fmt.Errorf("config error: max_ticks and tick_rate cannot be negative")
	}
	return nil
}
