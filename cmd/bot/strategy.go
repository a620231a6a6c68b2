package main

import (
	"maps"
	"math/rand"
	"slices"

	"github.com/wricardo/click-battler/game/engine"
)

// Strategy picks the next action from the bot's view of the arena
type Strategy struct {
	self          engine.PlayerID
	healThreshold int
	aggression    float64 // chance of attacking when healthy
	rng           *rand.Rand
}

// NewStrategy creates a strategy for player self. Below healThreshold the
// bot always heals; otherwise it attacks with probability aggression.
func NewStrategy(self engine.PlayerID, healThreshold int, aggression float64, rng *rand.Rand) *Strategy {
	return &Strategy{
		self:          self,
		healThreshold: healThreshold,
		aggression:    aggression,
		rng:           rng,
	}
}

// NextMove returns the action to send given the latest known players.
// Attacks go to the weakest opponent, lowest id on ties, so bots finish
// off players that are about to die.
func (s *Strategy) NextMove(players engine.Snapshot) engine.ClientMessage {
	me, ok := players[s.self]
	if !ok || me.Health <= s.healThreshold {
		return engine.HealSelf()
	}

	target, found := s.weakestOpponent(players)
	if !found || s.rng.Float64() >= s.aggression {
		return engine.HealSelf()
	}
	return engine.AttackPlayer(target)
}

func (s *Strategy) weakestOpponent(players engine.Snapshot) (engine.PlayerID, bool) {
	var (
		best  engine.PlayerID
		found bool
	)
	for _, id := range slices.Sorted(maps.Keys(players)) {
		if id == s.self {
			continue
		}
		if !found || players[id].Health < players[best].Health {
			best, found = id, true
		}
	}
	return best, found
}
