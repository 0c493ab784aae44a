// Command stress exercises a running relay with synthetic players. It dials a
// number of WebSocket clients, has each one send movement updates at a fixed
// rate, and prints how many state frames every client saw. Useful for eyeing
// fan-out behavior under more players than a real lobby would have.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	url      = flag.String("url", "ws://localhost:8080", "Relay WebSocket URL")
	clients  = flag.Int("clients", 4, "Number of synthetic players to connect")
	rate     = flag.Duration("rate", 50*time.Millisecond, "Delay between movement updates per client")
	duration = flag.Duration("duration", 10*time.Second, "How long to run")
)

// counters aggregates per-client observations.
type counters struct {
	states      atomic.Int64
	projectiles atomic.Int64
	hostChanges atomic.Int64
	sent        atomic.Int64
}

// welcome is the subset of the connected message the tool needs.
type welcome struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	IsHost   bool   `json:"isHost"`
}

func main() {
	flag.Parse()

	log.Printf("dialing %d clients against %s for %s", *clients, *url, *duration)

	var (
		wg    sync.WaitGroup
		stats = make([]*counters, *clients)
	)
	deadline := time.Now().Add(*duration)

	for i := 0; i < *clients; i++ {
		stats[i] = &counters{}
		wg.Add(1)
		go func(n int, c *counters) {
			defer wg.Done()
			if err := runClient(n, c, deadline); err != nil {
				log.Printf("client %d: %v", n, err)
			}
		}(i, stats[i])
		// Stagger dials so host election is deterministic: client 0 hosts.
		time.Sleep(50 * time.Millisecond)
	}

	wg.Wait()

	for i, c := range stats {
		fmt.Printf("client %d: sent=%d states=%d projectiles=%d hostChanges=%d\n",
			i, c.sent.Load(), c.states.Load(), c.projectiles.Load(), c.hostChanges.Load())
	}
}

// runClient connects one synthetic player and keeps it moving until the
// deadline.
func runClient(n int, c *counters, deadline time.Time) error {
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// First frame is the welcome; it carries our entity id.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("no welcome: %w", err)
	}
	var hello welcome
	if err := json.Unmarshal(payload, &hello); err != nil || hello.Type != "connected" {
		return fmt.Errorf("unexpected first frame: %s", payload)
	}
	log.Printf("client %d: entity=%s host=%v", n, hello.PlayerID, hello.IsHost)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn.SetReadDeadline(deadline.Add(2 * time.Second))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(payload, &frame) != nil {
				continue
			}
			switch frame.Type {
			case "state":
				c.states.Add(1)
			case "projectile":
				c.projectiles.Add(1)
			case "hostChanged":
				c.hostChanges.Add(1)
			}
		}
	}()

	if hello.IsHost {
		if err := conn.WriteJSON(map[string]string{"type": "startGame"}); err != nil {
			return fmt.Errorf("startGame failed: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(int64(n)))
	x, y := rng.Float64()*400, rng.Float64()*400

	for time.Now().Before(deadline) {
		x += rng.Float64()*10 - 5
		y += rng.Float64()*10 - 5
		update := map[string]interface{}{
			"type":     "playerUpdate",
			"playerId": hello.PlayerID,
			"player":   map[string]float64{"x": x, "y": y},
		}
		if err := conn.WriteJSON(update); err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		c.sent.Add(1)

		// The occasional projectile keeps the relay path warm too.
		if c.sent.Load()%20 == 0 {
			shot := map[string]interface{}{
				"type":       "projectile",
				"playerId":   hello.PlayerID,
				"projectile": map[string]float64{"x": x, "y": y, "vx": 3, "vy": 0},
			}
			if err := conn.WriteJSON(shot); err != nil {
				return fmt.Errorf("projectile failed: %w", err)
			}
		}

		time.Sleep(*rate)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	<-done
	return nil
}
