package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/hyunlab/swarm-arena/game/config"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

func TestCommandSurface(t *testing.T) {
	cmd := newCommand()

	for _, name := range []string{"config", "ws-port", "http-port", "game-port", "client-dir", "no-browser", "debug", "ngrok"} {
		found := false
		for _, f := range cmd.Flags {
			for _, n := range f.Names() {
				if n == name {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("missing flag %q", name)
		}
	}

	if len(cmd.Commands) == 0 || cmd.Commands[0].Name != "mcp" {
		t.Error("expected an mcp subcommand")
	}
}

// captureConfig runs the root command with action replaced, so flag parsing
// and loadConfig are exercised without starting servers.
func captureConfig(t *testing.T, args ...string) config.Config {
	t.Helper()

	var captured config.Config
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		captured = cfg
		return nil
	}

	argv := append([]string{"swarm-arena", "--config", filepath.Join(t.TempDir(), "none.toml")}, args...)
	if err := cmd.Run(context.Background(), argv); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	return captured
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := captureConfig(t)
	if cfg != config.Default() {
		t.Errorf("expected defaults with no flags, got %+v", cfg)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	cfg := captureConfig(t, "--ws-port", "9000", "--client-dir", "dist", "--no-browser")

	if cfg.Server.WSPort != 9000 {
		t.Errorf("ws-port override lost: %d", cfg.Server.WSPort)
	}
	if cfg.Server.ClientDir != "dist" {
		t.Errorf("client-dir override lost: %s", cfg.Server.ClientDir)
	}
	if cfg.Server.OpenBrowser {
		t.Error("no-browser should disable browser launch")
	}
	// Untouched settings keep their defaults.
	if cfg.Server.HTTPPort != config.Default().Server.HTTPPort {
		t.Errorf("http-port default lost: %d", cfg.Server.HTTPPort)
	}
}

func TestLoadConfigGamePortRaisesMax(t *testing.T) {
	cfg := captureConfig(t, "--game-port", "9999")

	if cfg.Server.GamePort != 9999 {
		t.Errorf("game-port override lost: %d", cfg.Server.GamePort)
	}
	if cfg.Server.GamePortMax < 9999 {
		t.Errorf("game_port_max must not fall below game_port: %d", cfg.Server.GamePortMax)
	}
}

func TestListenWithRetry(t *testing.T) {
	// Occupy a port, then ask for the range starting there.
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	ln, got, err := listenWithRetry(port, port+20)
	if err != nil {
		t.Fatalf("expected a fallback port: %v", err)
	}
	defer ln.Close()
	if got == port {
		t.Errorf("got the busy port %d back", port)
	}
	if got < port || got > port+20 {
		t.Errorf("port %d outside requested range", got)
	}
}

func TestListenWithRetryExhausted(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	if _, _, err := listenWithRetry(port, port); err == nil {
		t.Errorf("expected an error with only the busy port %d in range", port)
	}
}

func TestMCPSubcommandAPIURLDefault(t *testing.T) {
	cmd := newCommand()
	sub := cmd.Commands[0]

	var def string
	for _, f := range sub.Flags {
		if sf, ok := f.(*cli.StringFlag); ok && sf.Name == "api-url" {
			def = sf.Value
		}
	}
	want := fmt.Sprintf("http://localhost:%d", config.Default().Server.HTTPPort)
	if def != want {
		t.Errorf("api-url default %q does not match the API port, want %q", def, want)
	}
}
