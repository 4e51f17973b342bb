// Package config loads the console configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"xray-cbt/internal/afk"
	"xray-cbt/internal/animation"
	"xray-cbt/internal/item"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override file values.
const (
	EnvAPIURL   = "XRAY_CBT_API_URL"
	EnvToken    = "XRAY_CBT_TOKEN"
	EnvOperator = "XRAY_CBT_OPERATOR"
	EnvArea     = "XRAY_CBT_AREA"
)

// Config is the root configuration.
type Config struct {
	Supplier Supplier `yaml:"supplier"`
	Session  Session  `yaml:"session"`
	Viewport Viewport `yaml:"viewport"`
	Belt     Belt     `yaml:"belt"`
	AFK      AFK      `yaml:"afk"`
	Results  Results  `yaml:"results"`
}

// Supplier describes the item backend.
type Supplier struct {
	BaseURL string        `yaml:"baseUrl"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Session holds the course parameters.
type Session struct {
	Operator         string        `yaml:"operator"`
	Area             int           `yaml:"area"`
	Category         string        `yaml:"category"` // category id or "all"
	Duration         time.Duration `yaml:"duration"`
	CleanCategory    int           `yaml:"cleanCategory"`
	HiddenCategories map[int][]int `yaml:"hiddenCategories"`
}

// Viewport sizes and limits both views.
type Viewport struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	MinZoom          float64 `yaml:"minZoom"`
	MaxZoom          float64 `yaml:"maxZoom"`
	ZoomStep         float64 `yaml:"zoomStep"`
	SideCalibrationY float64 `yaml:"sideCalibrationY"`
}

// Belt controls the conveyor animation.
type Belt struct {
	Speed     float64 `yaml:"speed"`     // pixels per frame
	FrameRate int     `yaml:"frameRate"` // frames per second
}

// AFK configures the inactivity watchdog.
type AFK struct {
	Timeout     time.Duration `yaml:"timeout"`
	StrikeLimit int           `yaml:"strikeLimit"`
}

// Results controls where the last session summary is kept.
type Results struct {
	Dir string `yaml:"dir"` // empty means the user config directory
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Supplier: Supplier{
			BaseURL: "http://localhost:3015",
			Timeout: 15 * time.Second,
		},
		Session: Session{
			Area:          1,
			Category:      "all",
			Duration:      20 * time.Minute,
			CleanCategory: item.DefaultCleanCategory,
			HiddenCategories: map[int][]int{
				2: {5},
				3: {5, 6},
			},
		},
		Viewport: Viewport{
			Width:    850,
			Height:   980,
			MinZoom:  0.2,
			MaxZoom:  5,
			ZoomStep: 0.1,
		},
		Belt: Belt{
			Speed:     animation.DefaultSpeed,
			FrameRate: 60,
		},
		AFK: AFK{
			Timeout:     afk.DefaultTimeout,
			StrikeLimit: afk.DefaultLimit,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in a .env file that are not already
// set. A missing file is not an error; a malformed one is.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.Supplier.BaseURL = v
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Supplier.Token = v
	}
	if v, ok := lookup(EnvOperator); ok && v != "" {
		c.Session.Operator = v
	}
	if v, ok := lookup(EnvArea); ok && v != "" {
		area, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, EnvArea, v)
		}
		c.Session.Area = area
	}
	return nil
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	v := c.Viewport
	switch {
	case c.Supplier.BaseURL == "":
		return fmt.Errorf("%w: supplier.baseUrl is required", ErrInvalid)
	case c.Supplier.Timeout <= 0:
		return fmt.Errorf("%w: supplier.timeout must be positive", ErrInvalid)
	case c.Session.Duration <= 0:
		return fmt.Errorf("%w: session.duration must be positive", ErrInvalid)
	case c.Session.Category == "":
		return fmt.Errorf("%w: session.category is required", ErrInvalid)
	case v.Width <= 0 || v.Height <= 0:
		return fmt.Errorf("%w: viewport size %dx%d", ErrInvalid, v.Width, v.Height)
	case v.MinZoom <= 0 || v.MinZoom > 1 || v.MaxZoom < 1:
		return fmt.Errorf("%w: zoom range [%g, %g] must include 1", ErrInvalid, v.MinZoom, v.MaxZoom)
	case v.ZoomStep <= 0:
		return fmt.Errorf("%w: viewport.zoomStep must be positive", ErrInvalid)
	case c.Belt.Speed <= 0:
		return fmt.Errorf("%w: belt.speed must be positive", ErrInvalid)
	case c.Belt.FrameRate <= 0:
		return fmt.Errorf("%w: belt.frameRate must be positive", ErrInvalid)
	case c.AFK.Timeout <= 0:
		return fmt.Errorf("%w: afk.timeout must be positive", ErrInvalid)
	case c.AFK.StrikeLimit < 1:
		return fmt.Errorf("%w: afk.strikeLimit must be at least 1", ErrInvalid)
	}
	if c.Session.Category != "all" {
		if _, err := strconv.Atoi(c.Session.Category); err != nil {
			return fmt.Errorf("%w: session.category %q must be an id or \"all\"", ErrInvalid, c.Session.Category)
		}
	}
	return nil
}

// FrameInterval returns the tick period for the configured frame rate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Belt.FrameRate)
}
