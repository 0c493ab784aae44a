// Package config loads the server's tuning file.
//
// Settings live in an optional TOML file; anything unset falls back to the
// defaults below, so the server runs with no config file at all. Command-line
// flags override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig holds the listener settings.
type ServerConfig struct {
	WSPort      int    `toml:"ws_port"`
	HTTPPort    int    `toml:"http_port"`
	GamePort    int    `toml:"game_port"`
	GamePortMax int    `toml:"game_port_max"`
	ClientDir   string `toml:"client_dir"`
	OpenBrowser bool   `toml:"open_browser"`
}

// WatchdogConfig holds the liveness watchdog timers, in seconds.
type WatchdogConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	GraceSeconds    int `toml:"grace_seconds"`
	IdleSeconds     int `toml:"idle_seconds"`
}

// Config is the full tuning file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Watchdog WatchdogConfig `toml:"watchdog"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			WSPort:      8080,
			HTTPPort:    8081,
			GamePort:    5173,
			GamePortMax: 5200,
			ClientDir:   "client",
			OpenBrowser: true,
		},
		Watchdog: WatchdogConfig{
			IntervalSeconds: 5,
			GraceSeconds:    10,
			IdleSeconds:     30,
		},
	}
}

// Load reads the tuning file at path. A missing file is not an error: the
// defaults are returned. Unset fields inherit their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.WSPort <= 0 || c.Server.HTTPPort <= 0 || c.Server.GamePort <= 0 {
		return fmt.Errorf("%w: ports must be positive", ErrInvalidConfig)
	}
	if c.Server.GamePortMax < c.Server.GamePort {
		return fmt.Errorf("%w: game_port_max below game_port", ErrInvalidConfig)
	}
	if c.Watchdog.IdleSeconds <= c.Watchdog.GraceSeconds {
		return fmt.Errorf("%w: watchdog idle_seconds must exceed grace_seconds", ErrInvalidConfig)
	}
	return nil
}

// WatchdogInterval returns the tick interval as a duration.
func (c Config) WatchdogInterval() time.Duration {
	return time.Duration(c.Watchdog.IntervalSeconds) * time.Second
}

// WatchdogGrace returns the startup grace period as a duration.
func (c Config) WatchdogGrace() time.Duration {
	return time.Duration(c.Watchdog.GraceSeconds) * time.Second
}

// WatchdogIdle returns the idle timeout as a duration.
func (c Config) WatchdogIdle() time.Duration {
	return time.Duration(c.Watchdog.IdleSeconds) * time.Second
}
