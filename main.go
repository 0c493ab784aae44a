// Command swarm-arena starts the arena relay server.
//
// It supports two modes:
//  1. default – runs the WebSocket relay, the auxiliary REST API with an /mcp
//     HTTP endpoint, and the static asset server for the game page
//  2. "mcp" – runs an MCP stdio server proxying a running relay's REST API,
//     spinning up an internal one if none is reachable
//
// Flags control ports, the client directory, the tuning file, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/hyunlab/swarm-arena/api"
	"github.com/hyunlab/swarm-arena/game/config"
	"github.com/hyunlab/swarm-arena/game/service"
	"github.com/hyunlab/swarm-arena/game/session"
	"github.com/hyunlab/swarm-arena/game/world"
	"github.com/hyunlab/swarm-arena/netaddr"
	"github.com/hyunlab/swarm-arena/transport/mcp"
	"github.com/hyunlab/swarm-arena/transport/websocket"
	"github.com/hyunlab/swarm-arena/watchdog"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Swarm Arena Relay"
)

// statusInterval is how often the running server logs a one-line status
// summary.
const statusInterval = 30 * time.Second

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newCommand builds the CLI surface. The root action runs the relay; the
// "mcp" subcommand runs the stdio diagnostics server.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "swarm-arena",
		Usage:   "WebSocket relay server for the swarm arena co-op game",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "arena.toml",
				Usage: "Path to the TOML tuning file",
			},
			&cli.IntFlag{
				Name:  "ws-port",
				Usage: "WebSocket relay port (overrides the tuning file)",
			},
			&cli.IntFlag{
				Name:  "http-port",
				Usage: "Auxiliary REST API port (overrides the tuning file)",
			},
			&cli.IntFlag{
				Name:  "game-port",
				Usage: "First port to try for the asset server (overrides the tuning file)",
			},
			&cli.StringFlag{
				Name:  "client-dir",
				Usage: "Directory holding the game's static files (overrides the tuning file)",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Do not open the game page in a browser on startup",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel for the REST API",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServer,
		Commands: []*cli.Command{
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp"},
				Usage:   "Run an MCP stdio diagnostics server against a running relay",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Value: "http://localhost:8081",
						Usage: "Base URL of the relay's REST API",
					},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// loadConfig reads the tuning file and applies flag overrides on top.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}

	if p := int(cmd.Int("ws-port")); p != 0 {
		cfg.Server.WSPort = p
	}
	if p := int(cmd.Int("http-port")); p != 0 {
		cfg.Server.HTTPPort = p
	}
	if p := int(cmd.Int("game-port")); p != 0 {
		cfg.Server.GamePort = p
		if cfg.Server.GamePortMax < p {
			cfg.Server.GamePortMax = p
		}
	}
	if dir := cmd.String("client-dir"); dir != "" {
		cfg.Server.ClientDir = dir
	}
	if cmd.Bool("no-browser") {
		cfg.Server.OpenBrowser = false
	}
	return cfg, nil
}

// runServer wires the relay and runs it until a signal arrives or the
// watchdog decides the session is abandoned.
func runServer(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s", AppName, Version)

	store := world.NewStore()
	registry := session.NewManager()
	relay := service.NewRelayService(registry, store)
	activity := watchdog.NewActivity()
	detector := netaddr.NewDetector()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(relay, func() (string, string, bool) {
		ip, ok := detector.Current()
		if !ok {
			return "", "", false
		}
		return ip, fmt.Sprintf("ws://%s:%d", ip, cfg.Server.WSPort), true
	}, activity.Touch)

	apiServer := api.NewServer(relay, func() (api.AddrInfo, bool) {
		ip, ok := detector.Current()
		return api.AddrInfo{IP: ip, WSPort: cfg.Server.WSPort}, ok
	})

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/", hub.ServeWS)
	wsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.WSPort),
		Handler: wsMux,
	}

	auxRouter := http.NewServeMux()
	auxRouter.Handle("/", apiServer)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://localhost:%d", cfg.Server.HTTPPort))
	auxRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))
	auxServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      auxRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	assetListener, assetPort, err := listenWithRetry(cfg.Server.GamePort, cfg.Server.GamePortMax)
	if err != nil {
		return fmt.Errorf("no free port for the asset server: %w", err)
	}
	assetServer := &http.Server{
		Handler: api.AssetHandler(cfg.Server.ClientDir, activity.Touch),
	}

	var wg sync.WaitGroup
	serve := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && err != http.ErrServerClosed {
				log.Printf("%s server error: %v", name, err)
				cancel()
			}
		}()
	}

	serve("websocket", wsServer.ListenAndServe)
	serve("api", auxServer.ListenAndServe)
	serve("asset", func() error { return assetServer.Serve(assetListener) })

	go detector.Run(ctx)

	wd := watchdog.New(watchdog.Config{
		Interval:    cfg.WatchdogInterval(),
		GracePeriod: cfg.WatchdogGrace(),
		IdleTimeout: cfg.WatchdogIdle(),
	}, relay.ClientCount, activity.Last, cancel)
	go wd.Run(ctx)

	go statusLoop(ctx, relay, detector)

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cmd, auxRouter)
		}()
	}

	gameURL := fmt.Sprintf("http://localhost:%d", assetPort)
	log.Printf("WebSocket relay: ws://localhost:%d", cfg.Server.WSPort)
	log.Printf("REST API: http://localhost:%d/api", cfg.Server.HTTPPort)
	log.Printf("Game page: %s", gameURL)

	if cfg.Server.OpenBrowser {
		if err := openBrowser(gameURL); err != nil {
			log.Printf("failed to open browser: %v", err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case <-ctx.Done():
		log.Println("Shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	hub.Shutdown()
	for name, srv := range map[string]*http.Server{
		"websocket": wsServer,
		"api":       auxServer,
		"asset":     assetServer,
	} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("%s server shutdown error: %v", name, err)
		}
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// mcpHTTPHandler exposes the MCP server over plain HTTP POST, next to the
// REST API.
func mcpHTTPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// listenWithRetry binds the first free port in [from, max]. The asset port is
// fixed in the game page's defaults, so the preferred port goes first and the
// rest are fallbacks for when another dev server already holds it.
func listenWithRetry(from, max int) (net.Listener, int, error) {
	var lastErr error
	for port := from; port <= max; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			if port != from {
				log.Printf("port %d busy, asset server on %d", from, port)
			}
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("ports %d-%d all busy: %w", from, max, lastErr)
}

// statusLoop logs a periodic one-line summary of the running session.
func statusLoop(ctx context.Context, relay service.RelayService, detector *netaddr.Detector) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			addr := "none"
			if ip, ok := detector.Current(); ok {
				addr = ip
			}
			snap := relay.Snapshot()
			log.Printf("status: clients=%d players=%d started=%v addr=%s",
				relay.ClientCount(), len(snap.Players), snap.Started, addr)
		}
	}
}

// openBrowser opens url with the platform's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// runNgrokTunnel provisions a public tunnel for the REST API surface.
func runNgrokTunnel(ctx context.Context, cmd *cli.Command, handler http.Handler) {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCP runs the MCP stdio diagnostics server. It reuses a running
// relay's API when one answers; otherwise it starts a minimal internal API on
// a loopback port so the tools still work.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	baseURL := cmd.String("api-url")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err == nil {
		resp.Body.Close()
	}
	if err == nil && resp.StatusCode < 500 {
		log.Printf("Relay API found at %s, using it for MCP", baseURL)
	} else {
		log.Println("No relay API reachable, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		store := world.NewStore()
		registry := session.NewManager()
		relay := service.NewRelayService(registry, store)
		internal := &http.Server{Handler: api.NewServer(relay, nil)}

		go func() {
			if err := internal.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Printf("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")
	return mcpserver.ServeStdio(mcpClient.GetMCPServer())
}
