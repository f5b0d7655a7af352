// Package config holds the runtime configuration.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Engine names accepted by Config.Engine.
const (
	EngineOpenCV = "opencv"
	EngineGo     = "go"
)

// Config holds runtime configuration, loaded from a JSON file.
type Config struct {
	// Warp engine: "opencv" or "go"
	Engine string `json:"engine"`

	// Extraction
	PreviewMaxSize     int `json:"preview_max_size"`
	MaxOutputDimension int `json:"max_output_dimension"` // 0 = longer side of the source

	// Selection thresholds in display pixels at zoom 1
	MinPointDistance float64 `json:"min_point_distance"`
	HitRadius        float64 `json:"hit_radius"`

	PollIntervalMs int `json:"poll_interval_ms"`
	MaxRecentFiles int `json:"max_recent_files"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	WindowWidth     int  `json:"window_width"`
	WindowHeight    int  `json:"window_height"`
	ShowLaunchPopup bool `json:"show_launch_popup"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine:             EngineOpenCV,
		PreviewMaxSize:     500,
		MaxOutputDimension: 0,
		MinPointDistance:   20,
		HitRadius:          10,
		PollIntervalMs:     100,
		MaxRecentFiles:     5,
		LogLevel:           "info",
		LogFile:            "",
		WindowWidth:        1200,
		WindowHeight:       800,
		ShowLaunchPopup:    true,
	}
}

// DefaultPath returns ~/.config/textractor/config.json or the platform
// equivalent.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "textractor", "config.json")
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	if c.Engine != EngineOpenCV && c.Engine != EngineGo {
		c.Engine = d.Engine
	}
	if c.PreviewMaxSize < 16 {
		c.PreviewMaxSize = d.PreviewMaxSize
	}
	if c.MaxOutputDimension < 0 {
		c.MaxOutputDimension = 0
	}
	if c.MinPointDistance < 0 {
		c.MinPointDistance = d.MinPointDistance
	}
	if c.HitRadius <= 0 {
		c.HitRadius = d.HitRadius
	}
	if c.PollIntervalMs < 10 || c.PollIntervalMs > 1000 {
		c.PollIntervalMs = d.PollIntervalMs
	}
	if c.MaxRecentFiles <= 0 {
		c.MaxRecentFiles = d.MaxRecentFiles
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		c.LogLevel = d.LogLevel
	}
	if c.WindowWidth < 400 {
		c.WindowWidth = d.WindowWidth
	}
	if c.WindowHeight < 300 {
		c.WindowHeight = d.WindowHeight
	}
	return nil
}

// PollInterval returns the result polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
