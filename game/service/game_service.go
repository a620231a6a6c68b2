package service

import (
	"context"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
)

// GameService defines the read-side operations exposed over REST and MCP.
// Gameplay itself only flows through the websocket transport.
type GameService interface {
	// World
	GetWorld(ctx context.Context) (*WorldState, error)
	GetPlayer(ctx context.Context, id engine.PlayerID) (*engine.Player, error)

	// Server
	GetStats(ctx context.Context) (*Stats, error)
	GetRules(ctx context.Context) (*engine.Rules, error)

	// Rulesets
	ListRulesets(ctx context.Context) ([]*RulesetInfo, error)
	LoadRuleset(ctx context.Context, name string) (*engine.Rules, error)
	SaveRuleset(ctx context.Context, name string, rules *engine.Rules) error
	ReloadRulesets(ctx context.Context) ([]*RulesetInfo, error)
}

// WorldReader queries the live registry.
// coordinator.Handle satisfies it.
type WorldReader interface {
	Snapshot(ctx context.Context) (engine.Snapshot, error)
	Player(ctx context.Context, id engine.PlayerID) (engine.Player, bool, error)
}

var _ WorldReader = coordinator.Handle{}

// RulesetManager handles ruleset file loading
type RulesetManager interface {
	LoadRules(name string) (*engine.Rules, error)
	ListRulesets() ([]*RulesetInfo, error)
	GetDefault() *engine.Rules
	SaveRules(name string, rules *engine.Rules) error
	RefreshCache()
}
