package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
timeout: 20s
windowSwitchTimeout: 5s
pollInterval: 250ms
strategy: exact
appMap: maps/shop.yaml
driver: rod
debuggerUrl: ws://127.0.0.1:9222/devtools/browser/abc
headless: false
logFile: run.log
verbose: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Timeout != 20*time.Second {
		t.Errorf("expected timeout 20s, got %s", cfg.Timeout)
	}
	if cfg.WindowSwitchTimeout != 5*time.Second {
		t.Errorf("expected windowSwitchTimeout 5s, got %s", cfg.WindowSwitchTimeout)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("expected pollInterval 250ms, got %s", cfg.PollInterval)
	}
	if cfg.MatchStrategy() != dom.StrategyExact {
		t.Errorf("expected exact strategy, got %s", cfg.MatchStrategy())
	}
	if want := filepath.Join(dir, "maps", "shop.yaml"); cfg.AppMap != want {
		t.Errorf("expected appMap %s, got %s", want, cfg.AppMap)
	}
	if cfg.Driver != DriverRod {
		t.Errorf("expected driver rod, got %s", cfg.Driver)
	}
	if cfg.Headless {
		t.Error("expected headless false")
	}
	if !cfg.Verbose || cfg.LogFile != "run.log" {
		t.Errorf("expected verbose logging to run.log, got %v %q", cfg.Verbose, cfg.LogFile)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("expected default fetchTimeout 10s, got %s", cfg.FetchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_AbsoluteAppMapKept(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere", "app.yaml")
	path := writeConfig(t, dir, "config.yaml", "appMap: "+abs+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppMap != abs {
		t.Errorf("expected %s, got %s", abs, cfg.AppMap)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `timeout: [invalid yaml`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `timeout: soon`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for an unparsable duration")
	}
}

func TestLoad_EmptyConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", ``)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := Defaults()
	if *cfg != *def {
		t.Errorf("expected defaults %+v, got %+v", def, cfg)
	}
}

func TestLoadFromDir(t *testing.T) {
	t.Run("config.yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yaml", `driver: mock`)
		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Driver != DriverMock {
			t.Errorf("expected driver mock, got %s", cfg.Driver)
		}
	})

	t.Run("config.yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yml", `driver: rod`)
		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Driver != DriverRod {
			t.Errorf("expected driver rod, got %s", cfg.Driver)
		}
	})

	t.Run("prefers yaml over yml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yaml", `driver: mock`)
		writeConfig(t, dir, "config.yml", `driver: rod`)
		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Driver != DriverMock {
			t.Errorf("expected driver mock (from config.yaml), got %s", cfg.Driver)
		}
	})

	t.Run("no config", func(t *testing.T) {
		cfg, err := LoadFromDir(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Driver != DriverChromedp || cfg.Timeout != 15*time.Second {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"zero window switch timeout", func(c *Config) { c.WindowSwitchTimeout = 0 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative fetch timeout", func(c *Config) { c.FetchTimeout = -1 }},
		{"unknown driver", func(c *Config) { c.Driver = "selenium" }},
		{"unknown strategy", func(c *Config) { c.Strategy = "fuzzy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Errorf("expected invalid config, got %v", err)
			}
		})
	}

	zero := Defaults()
	zero.Timeout = 0
	if err := zero.Validate(); err != nil {
		t.Errorf("a zero timeout means one attempt and must validate, got %v", err)
	}
}
