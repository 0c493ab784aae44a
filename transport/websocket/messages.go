package websocket

import (
	"encoding/json"

	"github.com/hyunlab/swarm-arena/game/world"
)

// envelope is the decoded shape of every inbound client message. Fields
// beyond Type are populated per message type; required ones are validated in
// the router.
type envelope struct {
	Type       string          `json:"type"`
	PlayerID   string          `json:"playerId"`
	Player     json.RawMessage `json:"player"`
	Level      *int            `json:"level"`
	Projectile json.RawMessage `json:"projectile"`
}

// connectedMessage welcomes a new participant with its identity and the full
// snapshot, plus the discovered reachable address when one is known.
type connectedMessage struct {
	Type          string      `json:"type"`
	ClientID      string      `json:"clientId"`
	PlayerID      string      `json:"playerId"`
	IsHost        bool        `json:"isHost"`
	State         world.State `json:"state"`
	RemoteAddress string      `json:"remoteAddress,omitempty"`
	WSURL         string      `json:"wsUrl,omitempty"`
}

type stateMessage struct {
	Type  string      `json:"type"`
	State world.State `json:"state"`
}

type hostChangedMessage struct {
	Type      string `json:"type"`
	NewHostID string `json:"newHostId"`
}

// projectileMessage is relayed verbatim to every peer except the sender.
type projectileMessage struct {
	Type       string          `json:"type"`
	PlayerID   string          `json:"playerId"`
	Projectile json.RawMessage `json:"projectile"`
}
