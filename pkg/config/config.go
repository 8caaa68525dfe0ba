// Package config handles configuration for recognizer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
)

// Drivers accepted in Config.Driver.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
	DriverMock     = "mock"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Resolution
	Timeout             time.Duration `yaml:"timeout"`             // Default resolve timeout
	WindowSwitchTimeout time.Duration `yaml:"windowSwitchTimeout"` // Bound on one window switch
	PollInterval        time.Duration `yaml:"pollInterval"`        // Sleep between attempts
	Strategy            string        `yaml:"strategy"`            // compat, exact, partial
	AppMap              string        `yaml:"appMap"`              // Application map file

	// Browser
	Driver       string        `yaml:"driver"`       // chromedp, rod, mock
	DebuggerURL  string        `yaml:"debuggerUrl"`  // Attach instead of launching
	Headless     bool          `yaml:"headless"`     // Launch mode
	StartURL     string        `yaml:"startUrl"`     // Opened in a launched browser
	FetchTimeout time.Duration `yaml:"fetchTimeout"` // HTTP fallback for unreadable frames

	// Logging
	LogFile string `yaml:"logFile"`
	Verbose bool   `yaml:"verbose"`
}

// Defaults returns the configuration used when no file sets a value.
func Defaults() *Config {
	return &Config{
		Timeout:             15 * time.Second,
		WindowSwitchTimeout: 30 * time.Second,
		PollInterval:        time.Second,
		Strategy:            dom.StrategyCompat.String(),
		Driver:              DriverChromedp,
		Headless:            true,
		FetchTimeout:        10 * time.Second,
	}
}

// Load loads configuration from a file over the defaults. A relative appMap
// is taken relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.AppMap != "" && !filepath.IsAbs(cfg.AppMap) {
		cfg.AppMap = filepath.Join(filepath.Dir(path), cfg.AppMap)
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Defaults(), nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return invalid("timeout must not be negative, got %s", c.Timeout)
	case c.WindowSwitchTimeout <= 0:
		return invalid("windowSwitchTimeout must be positive, got %s", c.WindowSwitchTimeout)
	case c.PollInterval <= 0:
		return invalid("pollInterval must be positive, got %s", c.PollInterval)
	case c.FetchTimeout < 0:
		return invalid("fetchTimeout must not be negative, got %s", c.FetchTimeout)
	}

	switch c.Driver {
	case DriverChromedp, DriverRod, DriverMock:
	default:
		return invalid("unknown driver %q (want %s, %s or %s)", c.Driver, DriverChromedp, DriverRod, DriverMock)
	}

	if _, ok := dom.ParseStrategy(c.Strategy); !ok {
		return invalid("unknown strategy %q", c.Strategy)
	}
	return nil
}

// MatchStrategy returns the parsed Strategy.
func (c *Config) MatchStrategy() dom.Strategy {
	s, _ := dom.ParseStrategy(c.Strategy)
	return s
}

func invalid(format string, args ...interface{}) error {
	return core.ErrInvalidConfig.WithMessage(fmt.Sprintf(format, args...))
}
