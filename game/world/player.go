package world

import "encoding/json"

// Display colors assigned at entity creation. The host gets the light color
// so players can tell at a glance who controls the round.
const (
	HostColor  = "rgba(232,238,255,0.92)"
	GuestColor = "rgba(124,92,255,0.95)"
)

// Default combat stats for a freshly created player entity.
const (
	DefaultMaxHP     = 100.0
	DefaultLevel     = 1
	DefaultDamage    = 9.0
	DefaultFireRate  = 3.2
	DefaultPierce    = 0
	DefaultPickup    = 70.0
	DefaultRegen     = 0.0
	DefaultProjSize  = 4.0
	DefaultProjCount = 1
	DefaultDashCdMax = 1.1
)

// LobbySpacing is the x-axis distance between lobby slots.
const LobbySpacing = 40.0

// Player is the in-world avatar and stat block controlled by exactly one
// connected client. Field names match the wire format the browser expects.
type Player struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	HP        float64 `json:"hp"`
	HPMax     float64 `json:"hpMax"`
	Level     int     `json:"level"`
	Color     string  `json:"color"`
	Damage    float64 `json:"damage"`
	FireRate  float64 `json:"fireRate"`
	Pierce    int     `json:"pierce"`
	Pickup    float64 `json:"pickup"`
	Regen     float64 `json:"regen"`
	ProjSize  float64 `json:"projSize"`
	ProjCount int     `json:"projCount"`
	DashCd    float64 `json:"dashCd"`
	DashCdMax float64 `json:"dashCdMax"`
}

// newPlayer builds an entity at the given lobby slot with default stats.
func newPlayer(id string, slot int, isHost bool) *Player {
	color := GuestColor
	if isHost {
		color = HostColor
	}
	return &Player{
		ID:        id,
		X:         float64(slot) * LobbySpacing,
		Y:         0,
		HP:        DefaultMaxHP,
		HPMax:     DefaultMaxHP,
		Level:     DefaultLevel,
		Color:     color,
		Damage:    DefaultDamage,
		FireRate:  DefaultFireRate,
		Pierce:    DefaultPierce,
		Pickup:    DefaultPickup,
		Regen:     DefaultRegen,
		ProjSize:  DefaultProjSize,
		ProjCount: DefaultProjCount,
		DashCd:    0,
		DashCdMax: DefaultDashCdMax,
	}
}

// merge applies only the fields present in raw onto the player. Absent fields
// are left untouched, which gives the partial-update semantics clients rely
// on when they send position-only packets. The unmarshal goes through a
// scratch copy so a payload that fails mid-decode leaves the entity exactly
// as it was. The entity id is pinned: a payload carrying a different id
// cannot re-key the entity.
func (p *Player) merge(raw json.RawMessage) error {
	scratch := *p
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return err
	}
	scratch.ID = p.ID
	*p = scratch
	return nil
}
