package engine

import (
	"fmt"
	"slices"
)

// World holds the player registry and applies the game rules to it.
//
// A World is not safe for concurrent use; it is owned by a single goroutine
// (the coordinator) and every other component only ever sees Snapshots.
type World struct {
	rules   Rules
	players map[PlayerID]Player
	nextID  PlayerID
}

// NewWorld creates an empty world running the given rules
func NewWorld(rules Rules) (*World, error) {
	if err := ValidateRules(&rules); err != nil {
		return nil, err
	}

	return &World{
		rules:   rules,
		players: make(map[PlayerID]Player),
	}, nil
}

// Rules returns the ruleset in effect
func (w *World) Rules() Rules {
	return w.rules
}

// Spawn creates a player with a fresh ID and the starting health
func (w *World) Spawn() Player {
	p := Player{ID: w.nextID, Health: w.rules.StartingHealth}
	w.nextID++
	w.players[p.ID] = p
	return p
}

// Get returns the live player with the given ID
func (w *World) Get(id PlayerID) (Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// Has reports whether id is a live player
func (w *World) Has(id PlayerID) bool {
	_, ok := w.players[id]
	return ok
}

// Len returns the number of live players
func (w *World) Len() int {
	return len(w.players)
}

// Remove deletes a player without treating it as a death.
// It reports whether the player was present.
func (w *World) Remove(id PlayerID) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

// Heal applies HealAmount to a live player. It reports whether the player exists.
func (w *World) Heal(id PlayerID) bool {
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.Health += w.rules.HealAmount
	w.players[id] = p
	return true
}

// Attack applies AttackDamage to target. hit reports whether target was live;
// died reports whether the hit removed it from the world.
func (w *World) Attack(target PlayerID) (hit, died bool) {
	p, ok := w.players[target]
	if !ok {
		return false, false
	}
	p.Health -= w.rules.AttackDamage
	if !p.Alive() {
		delete(w.players, target)
		return true, true
	}
	w.players[target] = p
	return true, false
}

// Apply runs a client action on behalf of actor. It returns the players that
// died as a result, and ok=false when actor is not a live player (the action
// is stale and nothing changed).
func (w *World) Apply(actor PlayerID, msg ClientMessage) (died []PlayerID, ok bool, err error) {
	if !w.Has(actor) {
		return nil, false, nil
	}

	switch msg.Kind {
	case MessageHealSelf:
		w.Heal(actor)
	case MessageAttackPlayer:
		if _, dead := w.Attack(msg.Target); dead {
			died = append(died, msg.Target)
		}
	default:
		return nil, false, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, msg.Kind)
	}
	return died, true, nil
}

// Tick applies TickDamage to every live player, then removes the ones that
// reached zero. The removed IDs are returned in ascending order.
func (w *World) Tick() []PlayerID {
	var died []PlayerID
	for id, p := range w.players {
		p.Health -= w.rules.TickDamage
		w.players[id] = p
		if !p.Alive() {
			died = append(died, id)
		}
	}

	slices.Sort(died)
	for _, id := range died {
		delete(w.players, id)
	}
	return died
}

// Snapshot returns a copy of the registry
func (w *World) Snapshot() Snapshot {
	s := make(Snapshot, len(w.players))
	for id, p := range w.players {
		s[id] = p
	}
	return s
}
