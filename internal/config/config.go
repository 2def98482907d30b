// Package config loads mudra settings from defaults, an optional YAML file,
// a .env file and MUDRA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MUDRA_"

// Config is the complete mudra configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Store    StoreConfig    `yaml:"store"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Preview  PreviewConfig  `yaml:"preview"`
	Tray     TrayConfig     `yaml:"tray"`
}

// SerialConfig describes the actuator controller's serial port.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	Settle      time.Duration `yaml:"settle"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// Required makes a missing device fatal instead of running camera-only.
	Required bool `yaml:"required"`
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"`
}

// DetectorConfig tunes the landmark detector subprocess.
type DetectorConfig struct {
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
	Script                 string  `yaml:"script"`
}

// DispatchConfig holds the command timing.
type DispatchConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// StoreConfig locates the session history database. An empty path disables history.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds the local API listener. An empty address disables the server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures slog output and optional file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// PreviewConfig controls the camera window.
type PreviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// TrayConfig controls the system tray front end.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			Baud:        9600,
			Settle:      2 * time.Second,
			ReadTimeout: time.Second,
		},
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
			Mirror: true,
		},
		Detector: DetectorConfig{
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
		},
		Dispatch: DispatchConfig{
			Debounce:      300 * time.Millisecond,
			ShutdownGrace: 500 * time.Millisecond,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Preview: PreviewConfig{
			Enabled: true,
			Title:   "Hand Gesture Control",
		},
	}
}

// defaultStorePath returns ~/.mudra/mudra.db, or a file in the working directory
// when there is no home directory.
func defaultStorePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "mudra.db"
	}
	return filepath.Join(homeDir, ".mudra", "mudra.db")
}

// Load builds the configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file on cfg. Keys absent from the file keep their values.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies MUDRA_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SERIAL_PORT":     &cfg.Serial.Port,
		"DETECTOR_SCRIPT": &cfg.Detector.Script,
		"STORE_PATH":      &cfg.Store.Path,
		"HTTP_ADDR":       &cfg.HTTP.Addr,
		"LOG_LEVEL":       &cfg.Log.Level,
		"LOG_FORMAT":      &cfg.Log.Format,
		"LOG_FILE":        &cfg.Log.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SERIAL_BAUD":   &cfg.Serial.Baud,
		"CAMERA_DEVICE": &cfg.Camera.Device,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"DEBOUNCE":       &cfg.Dispatch.Debounce,
		"SHUTDOWN_GRACE": &cfg.Dispatch.ShutdownGrace,
		"SERIAL_SETTLE":  &cfg.Serial.Settle,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"SERIAL_REQUIRED": &cfg.Serial.Required,
		"CAMERA_MIRROR":   &cfg.Camera.Mirror,
		"PREVIEW":         &cfg.Preview.Enabled,
		"TRAY":            &cfg.Tray.Enabled,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Serial.Settle < 0 {
		errs = append(errs, fmt.Errorf("serial.settle must not be negative, got %s", c.Serial.Settle))
	}
	if c.Serial.Required && c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port is required when serial.required is set"))
	}
	if c.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device must not be negative, got %d", c.Camera.Device))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		errs = append(errs, errors.New("camera width, height and fps must not be negative"))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands))
	}
	if !unitInterval(c.Detector.MinDetectionConfidence) {
		errs = append(errs, fmt.Errorf("detector.min_detection_confidence %v outside [0, 1]", c.Detector.MinDetectionConfidence))
	}
	if !unitInterval(c.Detector.MinTrackingConfidence) {
		errs = append(errs, fmt.Errorf("detector.min_tracking_confidence %v outside [0, 1]", c.Detector.MinTrackingConfidence))
	}
	if c.Dispatch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("dispatch.debounce must not be negative, got %s", c.Dispatch.Debounce))
	}
	if c.Dispatch.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("dispatch.shutdown_grace must not be negative, got %s", c.Dispatch.ShutdownGrace))
	}
	if !contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("invalid log.level %q", c.Log.Level))
	}
	if !contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("invalid log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
