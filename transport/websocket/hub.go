package websocket

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hyunlab/swarm-arena/game/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The asset server may sit on a different port than the relay.
		return true
	},
}

// AddrFunc reports the currently discovered reachable address for remote
// players, if any.
type AddrFunc func() (ip, wsURL string, ok bool)

// Hub routes inbound protocol messages and fans state out to every open
// connection through the session registry.
type Hub struct {
	service service.RelayService
	addr    AddrFunc
	touch   func()
}

// NewHub wires the relay service to the transport. addr and touch may be nil
// when address discovery or activity tracking is not wanted (tests).
func NewHub(svc service.RelayService, addr AddrFunc, touch func()) *Hub {
	return &Hub{service: svc, addr: addr, touch: touch}
}

// ServeWS upgrades the request and onboards the connection: register, entity
// provisioning, welcome message, state broadcast, pump startup.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.markActivity()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn)
	res := h.service.Join(client)
	client.clientID = res.Participant.ClientID

	log.Printf("client connected: %s entity=%s host=%v clients=%d",
		res.Participant.ClientID, res.Participant.EntityID, res.Participant.IsHost,
		h.service.ClientCount())

	go client.writePump()

	welcome := connectedMessage{
		Type:     "connected",
		ClientID: res.Participant.ClientID,
		PlayerID: res.Participant.EntityID,
		IsHost:   res.Participant.IsHost,
		State:    res.Snapshot,
	}
	if h.addr != nil {
		if ip, wsURL, ok := h.addr(); ok {
			welcome.RemoteAddress = ip
			welcome.WSURL = wsURL
		}
	}
	if data, err := json.Marshal(welcome); err != nil {
		log.Printf("failed to marshal welcome for %s: %v", client.clientID, err)
	} else if err := client.Send(data); err != nil {
		log.Printf("failed to queue welcome for %s: %v", client.clientID, err)
	}

	go client.readPump()

	h.BroadcastState()
}

// route dispatches one decoded inbound message. Every failure mode here is a
// silent drop: log it, keep the connection open, never answer with an error.
func (h *Hub) route(c *Client, payload []byte) {
	h.markActivity()

	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("discarding malformed message from %s: %v", c.clientID, err)
		return
	}

	switch msg.Type {
	case "playerUpdate":
		if msg.PlayerID == "" || len(msg.Player) == 0 {
			log.Printf("playerUpdate from %s missing fields", c.clientID)
			return
		}
		if h.service.PlayerUpdate(c.clientID, msg.PlayerID, msg.Player) {
			h.BroadcastState()
		}

	case "startGame":
		if h.service.StartGame(c.clientID) {
			h.BroadcastState()
		}

	case "reset":
		if h.service.Reset(c.clientID) {
			h.BroadcastState()
		}

	case "levelUp":
		if msg.PlayerID == "" || msg.Level == nil {
			log.Printf("levelUp from %s missing fields", c.clientID)
			return
		}
		if h.service.LevelUp(c.clientID, msg.PlayerID, *msg.Level) {
			h.BroadcastState()
		}

	case "projectile":
		if msg.PlayerID == "" || len(msg.Projectile) == 0 {
			log.Printf("projectile from %s missing fields", c.clientID)
			return
		}
		if !h.service.AuthorizeProjectile(c.clientID, msg.PlayerID) {
			return
		}
		relay := projectileMessage{Type: "projectile", PlayerID: msg.PlayerID, Projectile: msg.Projectile}
		data, err := json.Marshal(relay)
		if err != nil {
			log.Printf("failed to marshal projectile relay: %v", err)
			return
		}
		h.Broadcast(data, c.clientID)

	default:
		log.Printf("unknown message type %q from %s", msg.Type, c.clientID)
	}
}

// handleDisconnect runs the close half of the lifecycle. Connections that
// never finished onboarding resolve to a no-op.
func (h *Hub) handleDisconnect(c *Client) {
	res := h.service.Leave(c.clientID)
	if !res.Found {
		return
	}

	log.Printf("client disconnected: %s clients=%d", c.clientID, h.service.ClientCount())

	if res.NewHost != nil {
		notice := hostChangedMessage{Type: "hostChanged", NewHostID: res.NewHost.ClientID}
		if data, err := json.Marshal(notice); err != nil {
			log.Printf("failed to marshal hostChanged: %v", err)
		} else {
			h.Broadcast(data, "")
		}
	}

	h.BroadcastState()
}

// Broadcast sends data to every participant except excludeClientID. A send
// failure closes that peer without aborting delivery to the others.
func (h *Hub) Broadcast(data []byte, excludeClientID string) {
	for _, p := range h.service.Participants() {
		if p.ClientID == excludeClientID {
			continue
		}
		if err := p.Conn.Send(data); err != nil {
			log.Printf("failed to send to %s, dropping connection: %v", p.ClientID, err)
			p.Conn.Close()
		}
	}
}

// BroadcastState serializes the authoritative snapshot as a state message and
// fans it out to everyone.
func (h *Hub) BroadcastState() {
	msg := stateMessage{Type: "state", State: h.service.Snapshot()}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal state message: %v", err)
		return
	}
	h.Broadcast(data, "")
}

// Shutdown closes every open connection. Used by the orderly shutdown path.
func (h *Hub) Shutdown() {
	for _, p := range h.service.Participants() {
		p.Conn.Close()
	}
}

func (h *Hub) markActivity() {
	if h.touch != nil {
		h.touch()
	}
}
