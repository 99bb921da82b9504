// Package config loads and validates go-hexapod configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// HEXAPOD_* environment variables. The result is validated before anything
// consumes it, so bad constants (a zero speed, say) fail at startup instead
// of as a division fault in the control loop.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-hexapod/internal/log"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Driver kinds.
const (
	DriverSim    = "sim"
	DriverSerial = "serial"
)

// Config is the complete controller configuration.
type Config struct {
	Control     ControlConfig     `yaml:"control"`
	Motion      MotionConfig      `yaml:"motion"`
	Pose        PoseConfig        `yaml:"pose"`
	WakeUp      WakeUpConfig      `yaml:"wake_up"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Dance       DanceConfig       `yaml:"dance"`
	Driver      DriverConfig      `yaml:"driver"`
	Web         WebConfig         `yaml:"web"`
	Log         LogConfig         `yaml:"log"`
}

// ControlConfig holds control loop timing.
type ControlConfig struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	StatsWindow int     `yaml:"stats_window"` // cycles kept for timing statistics
}

// Period returns the fixed control period.
func (c ControlConfig) Period() time.Duration {
	if c.FrequencyHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.FrequencyHz)
}

// MotionConfig holds move/turn constants.
type MotionConfig struct {
	GoSpeed      float64       `yaml:"go_speed"`
	TurnRate     float64       `yaml:"turn_rate"`
	LinearSlip   float64       `yaml:"linear_slip"`
	TurnSlip     float64       `yaml:"turn_slip"`
	DemoDistance float64       `yaml:"demo_distance"` // scripted forward/backward step in Offline and Dancing
	HomeDwell    time.Duration `yaml:"home_dwell"`
}

// PoseConfig holds body pose defaults.
type PoseConfig struct {
	BaseHeight     float64 `yaml:"base_height"`
	GaitHeightStep float64 `yaml:"gait_height_step"`
	DemoGaitID     int     `yaml:"demo_gait_id"`
}

// WakeUpConfig holds the two bounded waits of the wake-up sequence.
type WakeUpConfig struct {
	RadioDrain time.Duration `yaml:"radio_drain"`
	Settle     time.Duration `yaml:"settle"`
}

// CalibrationConfig holds trim and nudge settings.
type CalibrationConfig struct {
	TrimStep    int           `yaml:"trim_step"`
	NudgeOffset float64       `yaml:"nudge_offset"` // radians
	NudgeHold   time.Duration `yaml:"nudge_hold"`
}

// DanceConfig holds the Dancing mode routine parameters.
type DanceConfig struct {
	HipRotation    float64       `yaml:"hip_rotation"`
	HipTranslation float64       `yaml:"hip_translation"`
	HipHold        time.Duration `yaml:"hip_hold"`
	MinIterations  int           `yaml:"min_iterations"`
	MaxIterations  int           `yaml:"max_iterations"`
	PitchMin       float64       `yaml:"pitch_min"`
	PitchMax       float64       `yaml:"pitch_max"`
}

// DriverConfig selects the hardware driver.
type DriverConfig struct {
	Kind   string       `yaml:"kind"`
	Serial SerialConfig `yaml:"serial"`
}

// SerialConfig describes the servo board serial link.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// WebConfig holds dashboard settings.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig holds logging settings. MaxBackups bounds the rotated files
// kept next to File; zero keeps them all.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Options converts the settings for log.InitWithOptions.
func (l LogConfig) Options() log.Options {
	return log.Options{
		Level:      l.Level,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Control: ControlConfig{
			FrequencyHz: 100,
			StatsWindow: 500,
		},
		Motion: MotionConfig{
			GoSpeed:      0.002,
			TurnRate:     0.001,
			LinearSlip:   1.08,
			TurnSlip:     1.15,
			DemoDistance: 5,
			HomeDwell:    0,
		},
		Pose: PoseConfig{
			BaseHeight:     4,
			GaitHeightStep: 3,
			DemoGaitID:     3,
		},
		WakeUp: WakeUpConfig{
			RadioDrain: 3 * time.Second,
			Settle:     2 * time.Second,
		},
		Calibration: CalibrationConfig{
			TrimStep:    25,
			NudgeOffset: 0.2,
			NudgeHold:   300 * time.Millisecond,
		},
		Dance: DanceConfig{
			HipRotation:    0.15,
			HipTranslation: 0,
			HipHold:        500 * time.Millisecond,
			MinIterations:  4,
			MaxIterations:  7,
			PitchMin:       -0.5,
			PitchMax:       0.4,
		},
		Driver: DriverConfig{
			Kind: DriverSim,
			Serial: SerialConfig{
				Port:     "/dev/ttyUSB0",
				BaudRate: 115200,
			},
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 5,
		},
	}
}

// Load builds a validated configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("HEXAPOD_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges a YAML file over cfg.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies HEXAPOD_* environment overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HEXAPOD_DRIVER"); v != "" {
		cfg.Driver.Kind = v
	}
	if v := os.Getenv("HEXAPOD_SERIAL_PORT"); v != "" {
		cfg.Driver.Serial.Port = v
	}
	if v := os.Getenv("HEXAPOD_WEB_ADDR"); v != "" {
		cfg.Web.Addr = v
	}
	if v := os.Getenv("HEXAPOD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HEXAPOD_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("HEXAPOD_FREQUENCY_HZ"); v != "" {
		if hz, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Control.FrequencyHz = hz
		}
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Control.FrequencyHz <= 0 {
		bad("control.frequency_hz must be > 0, got %v", c.Control.FrequencyHz)
	}
	if c.Control.StatsWindow < 0 {
		bad("control.stats_window must be >= 0, got %d", c.Control.StatsWindow)
	}
	if c.Motion.GoSpeed <= 0 {
		bad("motion.go_speed must be > 0, got %v", c.Motion.GoSpeed)
	}
	if c.Motion.TurnRate <= 0 {
		bad("motion.turn_rate must be > 0, got %v", c.Motion.TurnRate)
	}
	if c.Motion.LinearSlip <= 0 || c.Motion.TurnSlip <= 0 {
		bad("motion slip factors must be > 0, got %v/%v", c.Motion.LinearSlip, c.Motion.TurnSlip)
	}
	if c.Motion.HomeDwell < 0 {
		bad("motion.home_dwell must be >= 0, got %v", c.Motion.HomeDwell)
	}
	if c.Pose.BaseHeight < 1 || c.Pose.BaseHeight > 7 {
		bad("pose.base_height must be within [1,7], got %v", c.Pose.BaseHeight)
	}
	if c.WakeUp.RadioDrain < 0 || c.WakeUp.Settle < 0 {
		bad("wake_up durations must be >= 0")
	}
	if c.Calibration.TrimStep <= 0 {
		bad("calibration.trim_step must be > 0, got %d", c.Calibration.TrimStep)
	}
	if c.Calibration.NudgeHold < 0 {
		bad("calibration.nudge_hold must be >= 0, got %v", c.Calibration.NudgeHold)
	}
	if c.Dance.MinIterations < 1 || c.Dance.MaxIterations < c.Dance.MinIterations {
		bad("dance iterations must satisfy 1 <= min <= max, got %d..%d", c.Dance.MinIterations, c.Dance.MaxIterations)
	}
	if c.Dance.PitchMax < c.Dance.PitchMin {
		bad("dance.pitch_max must be >= pitch_min")
	}
	if c.Dance.HipHold < 0 {
		bad("dance.hip_hold must be >= 0, got %v", c.Dance.HipHold)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		bad("log.max_size_mb and log.max_backups must be >= 0, got %d/%d", c.Log.MaxSizeMB, c.Log.MaxBackups)
	}
	switch c.Driver.Kind {
	case DriverSim:
	case DriverSerial:
		if c.Driver.Serial.Port == "" {
			bad("driver.serial.port is required for the serial driver")
		}
	default:
		bad("driver.kind %q must be one of %q, %q", c.Driver.Kind, DriverSim, DriverSerial)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
