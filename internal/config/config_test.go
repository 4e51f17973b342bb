package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cbt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20*time.Minute, cfg.Session.Duration)
	assert.Equal(t, 850, cfg.Viewport.Width)
	assert.Equal(t, 980, cfg.Viewport.Height)
	assert.Equal(t, []int{5, 6}, cfg.Session.HiddenCategories[3])
	assert.Equal(t, time.Second/60, cfg.FrameInterval())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
supplier:
  baseUrl: http://cbt.example:3015
  timeout: 5s
session:
  area: 3
  category: "4"
  duration: 90s
viewport:
  sideCalibrationY: 177
  maxZoom: 3
afk:
  timeout: 30s
`)
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvArea, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://cbt.example:3015", cfg.Supplier.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Supplier.Timeout)
	assert.Equal(t, 3, cfg.Session.Area)
	assert.Equal(t, "4", cfg.Session.Category)
	assert.Equal(t, 90*time.Second, cfg.Session.Duration)
	assert.Equal(t, 177.0, cfg.Viewport.SideCalibrationY)
	assert.Equal(t, 3.0, cfg.Viewport.MaxZoom)
	assert.Equal(t, 0.2, cfg.Viewport.MinZoom, "unset fields keep defaults")
	assert.Equal(t, 30*time.Second, cfg.AFK.Timeout)
	assert.Equal(t, 3, cfg.AFK.StrikeLimit)
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvAPIURL:   "https://api.example",
		EnvToken:    "secret",
		EnvOperator: "op-7",
		EnvArea:     "2",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	assert.Equal(t, "https://api.example", cfg.Supplier.BaseURL)
	assert.Equal(t, "secret", cfg.Supplier.Token)
	assert.Equal(t, "op-7", cfg.Session.Operator)
	assert.Equal(t, 2, cfg.Session.Area)

	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvArea {
			return "north", true
		}
		return "", false
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	cases := map[string]func(c *Config){
		"no base url":       func(c *Config) { c.Supplier.BaseURL = "" },
		"zero duration":     func(c *Config) { c.Session.Duration = 0 },
		"bad category":      func(c *Config) { c.Session.Category = "knives" },
		"zoom excludes one": func(c *Config) { c.Viewport.MinZoom = 1.5 },
		"zero zoom step":    func(c *Config) { c.Viewport.ZoomStep = 0 },
		"no width":          func(c *Config) { c.Viewport.Width = 0 },
		"stopped belt":      func(c *Config) { c.Belt.Speed = 0 },
		"no frame rate":     func(c *Config) { c.Belt.FrameRate = 0 },
		"no afk timeout":    func(c *Config) { c.AFK.Timeout = 0 },
		"no strikes":        func(c *Config) { c.AFK.StrikeLimit = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "supplier: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "belt:\n  speed: -1\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	good := filepath.Join(dir, "good.env")
	require.NoError(t, os.WriteFile(good, []byte("XRAY_CBT_DOTENV_CHECK=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("XRAY_CBT_DOTENV_CHECK") })
	require.NoError(t, LoadDotEnv(good))
	assert.Equal(t, "from-file", os.Getenv("XRAY_CBT_DOTENV_CHECK"))

	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("NOT-A-NAME=1\n"), 0o600))
	assert.Error(t, LoadDotEnv(bad))
}
