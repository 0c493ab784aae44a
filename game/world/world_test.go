package world

import (
	"encoding/json"
	"testing"
)

func TestAddPlayerDefaults(t *testing.T) {
	store := NewStore()

	if !store.AddPlayer("P1", true) {
		t.Fatal("expected first AddPlayer to succeed")
	}

	snap := store.Snapshot()
	p, ok := snap.Players["P1"]
	if !ok {
		t.Fatal("player P1 missing from snapshot")
	}

	if p.X != 0 || p.Y != 0 {
		t.Errorf("expected first lobby slot (0,0), got (%v,%v)", p.X, p.Y)
	}
	if p.HP != DefaultMaxHP || p.HPMax != DefaultMaxHP {
		t.Errorf("expected hp %v/%v, got %v/%v", DefaultMaxHP, DefaultMaxHP, p.HP, p.HPMax)
	}
	if p.Level != DefaultLevel {
		t.Errorf("expected level %d, got %d", DefaultLevel, p.Level)
	}
	if p.Color != HostColor {
		t.Errorf("expected host color, got %s", p.Color)
	}
	if p.Damage != DefaultDamage || p.FireRate != DefaultFireRate {
		t.Errorf("unexpected combat stats: damage=%v fireRate=%v", p.Damage, p.FireRate)
	}
}

func TestAddPlayerLobbySlots(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)
	store.AddPlayer("P2", false)
	store.AddPlayer("P3", false)

	snap := store.Snapshot()
	for i, id := range []string{"P1", "P2", "P3"} {
		want := float64(i) * LobbySpacing
		if snap.Players[id].X != want {
			t.Errorf("player %s: expected x=%v, got %v", id, want, snap.Players[id].X)
		}
	}
	if snap.Players["P2"].Color != GuestColor {
		t.Errorf("expected guest color for P2, got %s", snap.Players["P2"].Color)
	}
}

func TestAddPlayerIdempotent(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)

	store.SetLevel("P1", 7)
	if store.AddPlayer("P1", true) {
		t.Error("expected duplicate AddPlayer to be a no-op")
	}

	snap := store.Snapshot()
	if snap.Players["P1"].Level != 7 {
		t.Errorf("duplicate AddPlayer clobbered entity: level=%d", snap.Players["P1"].Level)
	}
	if store.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", store.PlayerCount())
	}
}

func TestApplyPlayerUpdatePartial(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)

	if !store.ApplyPlayerUpdate("P1", json.RawMessage(`{"x":12.5,"y":-3,"vx":1}`)) {
		t.Fatal("expected update to apply")
	}

	snap := store.Snapshot()
	p := snap.Players["P1"]
	if p.X != 12.5 || p.Y != -3 || p.VX != 1 {
		t.Errorf("position not merged: got (%v,%v) vx=%v", p.X, p.Y, p.VX)
	}
	// Fields absent from the payload keep their previous values.
	if p.HP != DefaultMaxHP || p.Damage != DefaultDamage || p.Color != HostColor {
		t.Errorf("absent fields were clobbered: hp=%v damage=%v color=%s", p.HP, p.Damage, p.Color)
	}
}

func TestApplyPlayerUpdatePinsID(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)

	store.ApplyPlayerUpdate("P1", json.RawMessage(`{"id":"P9","x":1}`))

	snap := store.Snapshot()
	if snap.Players["P1"].ID != "P1" {
		t.Errorf("entity id was re-keyed to %s", snap.Players["P1"].ID)
	}
}

func TestApplyPlayerUpdateMissingOrMalformed(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)

	if store.ApplyPlayerUpdate("P2", json.RawMessage(`{"x":1}`)) {
		t.Error("expected update for unknown entity to be rejected")
	}
	if store.ApplyPlayerUpdate("P1", json.RawMessage(`{"x":`)) {
		t.Error("expected malformed payload to be rejected")
	}
	// A valid field ahead of a type-mismatched one must not be half-applied.
	if store.ApplyPlayerUpdate("P1", json.RawMessage(`{"x":555,"vx":"bad"}`)) {
		t.Error("expected type-mismatched payload to be rejected")
	}

	snap := store.Snapshot()
	if snap.Players["P1"].X != 0 {
		t.Errorf("rejected update mutated entity: x=%v", snap.Players["P1"].X)
	}
	if snap.Players["P1"].VX != 0 {
		t.Errorf("rejected update mutated entity: vx=%v", snap.Players["P1"].VX)
	}
}

func TestReset(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)
	store.AddPlayer("P2", false)
	store.StartRound()

	store.ApplyPlayerUpdate("P1", json.RawMessage(`{"x":300,"y":150,"vx":5,"vy":-2,"hp":40}`))
	store.ApplyPlayerUpdate("P2", json.RawMessage(`{"x":-90,"hp":1}`))

	// Seed transient collections the way relayed payloads would.
	store.mu.Lock()
	store.state.Enemies = append(store.state.Enemies, json.RawMessage(`{"kind":"slime"}`))
	store.state.Projectiles = append(store.state.Projectiles, json.RawMessage(`{"r":4}`))
	store.state.Orbs = append(store.state.Orbs, json.RawMessage(`{"xp":3}`))
	store.state.T = 42.5
	store.state.Paused = true
	store.state.GameOver = true
	store.mu.Unlock()

	store.Reset()

	snap := store.Snapshot()
	if snap.T != 0 || snap.Paused || snap.GameOver {
		t.Errorf("round flags not cleared: t=%v paused=%v gameOver=%v", snap.T, snap.Paused, snap.GameOver)
	}
	if len(snap.Enemies) != 0 || len(snap.Projectiles) != 0 || len(snap.Orbs) != 0 {
		t.Error("transient collections not cleared")
	}
	for i, id := range []string{"P1", "P2"} {
		p := snap.Players[id]
		if p.X != float64(i)*LobbySpacing || p.Y != 0 {
			t.Errorf("player %s not re-homed: (%v,%v)", id, p.X, p.Y)
		}
		if p.VX != 0 || p.VY != 0 {
			t.Errorf("player %s velocity not zeroed", id)
		}
		if p.HP != p.HPMax {
			t.Errorf("player %s health not restored: %v/%v", id, p.HP, p.HPMax)
		}
	}
	if !snap.Started {
		t.Error("reset must not clear the started flag")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)

	snap := store.Snapshot()
	snap.Players["P1"].X = 999
	snap.Players["P2"] = &Player{ID: "P2"}

	fresh := store.Snapshot()
	if fresh.Players["P1"].X != 0 {
		t.Error("mutating a snapshot leaked into the store")
	}
	if _, ok := fresh.Players["P2"]; ok {
		t.Error("snapshot map is shared with the store")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)
	store.AddPlayer("P2", false)
	store.ApplyPlayerUpdate("P2", json.RawMessage(`{"x":77,"level":3,"dashCd":0.4}`))
	store.SetLevel("P2", 3)
	store.StartRound()

	data, err := json.Marshal(store.Snapshot())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	orig := store.Snapshot()
	if len(decoded.Players) != len(orig.Players) {
		t.Fatalf("expected %d players after round trip, got %d", len(orig.Players), len(decoded.Players))
	}
	for id, want := range orig.Players {
		got, ok := decoded.Players[id]
		if !ok {
			t.Fatalf("player %s lost in round trip", id)
		}
		if *got != *want {
			t.Errorf("player %s changed in round trip:\n got %+v\nwant %+v", id, got, want)
		}
	}
	if decoded.Started != orig.Started || decoded.T != orig.T {
		t.Errorf("round flags changed in round trip")
	}
}

func TestRemovePlayer(t *testing.T) {
	store := NewStore()
	store.AddPlayer("P1", true)
	store.AddPlayer("P2", false)

	if !store.RemovePlayer("P1") {
		t.Fatal("expected removal to succeed")
	}
	if store.RemovePlayer("P1") {
		t.Error("expected second removal to be a no-op")
	}

	store.Reset()
	snap := store.Snapshot()
	if snap.Players["P2"].X != 0 {
		t.Errorf("surviving player should take slot 0 after reset, got x=%v", snap.Players["P2"].X)
	}
}
