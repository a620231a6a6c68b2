package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PlayerID identifies a player for the lifetime of the process. IDs are
// issued in increasing order and never reused.
type PlayerID uint64

// Player is the authoritative per-player state
type Player struct {
	ID     PlayerID `json:"id"`
	Health int      `json:"health"`
}

// Alive reports whether the player still belongs in the registry
func (p Player) Alive() bool {
	return p.Health > 0
}

// Snapshot is a point-in-time copy of the player registry.
// encoding/json writes map keys in sorted order, so equal snapshots always
// produce identical payloads.
type Snapshot map[PlayerID]Player

// UpdateKind tags the variant carried by a GameUpdate
type UpdateKind string

const (
	KindPlayerJoined UpdateKind = "PlayerJoined"
	KindPlayerDied   UpdateKind = "PlayerDied"
	KindWorldUpdate  UpdateKind = "WorldUpdate"
)

// GameUpdate is broadcast by the coordinator to every registered client.
// Only the fields belonging to Kind are meaningful.
type GameUpdate struct {
	Kind    UpdateKind
	Player  Player   // KindPlayerJoined
	ID      PlayerID // KindPlayerDied
	Players Snapshot // KindWorldUpdate
}

// NewPlayerJoined announces a freshly connected player
func NewPlayerJoined(p Player) GameUpdate {
	return GameUpdate{Kind: KindPlayerJoined, Player: p}
}

// NewPlayerDied announces a combat or tick death
func NewPlayerDied(id PlayerID) GameUpdate {
	return GameUpdate{Kind: KindPlayerDied, ID: id}
}

// NewWorldUpdate carries a full snapshot of the registry
func NewWorldUpdate(s Snapshot) GameUpdate {
	return GameUpdate{Kind: KindWorldUpdate, Players: s}
}

type playerJoinedWire struct {
	Type   UpdateKind `json:"type"`
	Player Player     `json:"player"`
}

type playerDiedWire struct {
	Type UpdateKind `json:"type"`
	ID   PlayerID   `json:"id"`
}

type worldUpdateWire struct {
	Type    UpdateKind `json:"type"`
	Players Snapshot   `json:"players"`
}

// MarshalJSON encodes the update as a `type`-tagged object
func (u GameUpdate) MarshalJSON() ([]byte, error) {
	switch u.Kind {
	case KindPlayerJoined:
		return json.Marshal(playerJoinedWire{Type: u.Kind, Player: u.Player})
	case KindPlayerDied:
		return json.Marshal(playerDiedWire{Type: u.Kind, ID: u.ID})
	case KindWorldUpdate:
		players := u.Players
		if players == nil {
			players = Snapshot{}
		}
		return json.Marshal(worldUpdateWire{Type: u.Kind, Players: players})
	default:
		return nil, fmt.Errorf("unknown update kind %q", u.Kind)
	}
}

// UnmarshalJSON decodes a `type`-tagged update, used by bots and tests
func (u *GameUpdate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    UpdateKind `json:"type"`
		Player  *Player    `json:"player"`
		ID      *PlayerID  `json:"id"`
		Players Snapshot   `json:"players"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case KindPlayerJoined:
		if raw.Player == nil {
			return errors.New("PlayerJoined without player")
		}
		*u = NewPlayerJoined(*raw.Player)
	case KindPlayerDied:
		if raw.ID == nil {
			return errors.New("PlayerDied without id")
		}
		*u = NewPlayerDied(*raw.ID)
	case KindWorldUpdate:
		players := raw.Players
		if players == nil {
			players = Snapshot{}
		}
		*u = NewWorldUpdate(players)
	default:
		return fmt.Errorf("unknown update kind %q", raw.Type)
	}
	return nil
}

// MessageKind tags the variant carried by a ClientMessage
type MessageKind string

const (
	MessageHealSelf     MessageKind = "HealSelf"
	MessageAttackPlayer MessageKind = "AttackPlayer"
)

// ErrMalformedMessage is returned when an inbound frame is not a valid ClientMessage
var ErrMalformedMessage = errors.New("malformed client message")

// ClientMessage is an action sent by a player
type ClientMessage struct {
	Kind   MessageKind
	Target PlayerID // MessageAttackPlayer
}

// HealSelf builds a heal action
func HealSelf() ClientMessage {
	return ClientMessage{Kind: MessageHealSelf}
}

// AttackPlayer builds an attack action against target
func AttackPlayer(target PlayerID) ClientMessage {
	return ClientMessage{Kind: MessageAttackPlayer, Target: target}
}

// DecodeClientMessage parses one inbound text frame
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			return ClientMessage{}, err
		}
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return msg, nil
}

// UnmarshalJSON accepts {"type":"HealSelf"} and {"type":"AttackPlayer","target":N}
func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   MessageKind `json:"type"`
		Target *PlayerID   `json:"target"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch raw.Type {
	case MessageHealSelf:
		*m = HealSelf()
	case MessageAttackPlayer:
		if raw.Target == nil {
			return fmt.Errorf("%w: AttackPlayer without target", ErrMalformedMessage)
		}
		*m = AttackPlayer(*raw.Target)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, raw.Type)
	}
	return nil
}

// MarshalJSON encodes the action in its wire shape
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case MessageHealSelf:
		return json.Marshal(struct {
			Type MessageKind `json:"type"`
		}{m.Kind})
	case MessageAttackPlayer:
		return json.Marshal(struct {
			Type   MessageKind `json:"type"`
			Target PlayerID    `json:"target"`
		}{m.Kind, m.Target})
	default:
		return nil, fmt.Errorf("unknown message kind %q", m.Kind)
	}
}
