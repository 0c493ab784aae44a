package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
ws_port = 9000
client_dir = "dist"

[watchdog]
idle_seconds = 120
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.WSPort != 9000 {
		t.Errorf("ws_port override lost: %d", cfg.Server.WSPort)
	}
	if cfg.Server.ClientDir != "dist" {
		t.Errorf("client_dir override lost: %s", cfg.Server.ClientDir)
	}
	// Unset fields keep their defaults.
	if cfg.Server.HTTPPort != Default().Server.HTTPPort {
		t.Errorf("http_port default lost: %d", cfg.Server.HTTPPort)
	}
	if cfg.Watchdog.IdleSeconds != 120 {
		t.Errorf("idle_seconds override lost: %d", cfg.Watchdog.IdleSeconds)
	}
	if cfg.Watchdog.GraceSeconds != Default().Watchdog.GraceSeconds {
		t.Errorf("grace_seconds default lost: %d", cfg.Watchdog.GraceSeconds)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, `[server`)

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative port", "[server]\nws_port = -1\n"},
		{"port range inverted", "[server]\ngame_port = 6000\ngame_port_max = 5999\n"},
		{"idle below grace", "[watchdog]\ngrace_seconds = 60\nidle_seconds = 30\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.WatchdogInterval().Seconds() != 5 {
		t.Errorf("unexpected interval: %v", cfg.WatchdogInterval())
	}
	if cfg.WatchdogIdle() <= cfg.WatchdogGrace() {
		t.Error("idle timeout must exceed grace period")
	}
}
