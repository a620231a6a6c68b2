package service

import (
	"time"

	"github.com/wricardo/click-battler/game/engine"
)

// WorldState is a read-only view of the live registry
type WorldState struct {
	Players     []engine.Player `json:"players"` // ascending by id
	PlayerCount int             `json:"player_count"`
	Leader      *engine.Player  `json:"leader,omitempty"` // highest health, lowest id on ties
	Ruleset     string          `json:"ruleset"`
	TickMs      int             `json:"tick_interval_ms"`
	TakenAt     time.Time       `json:"taken_at"`
}

// Stats reports server counters and uptime
type Stats struct {
	Players       int            `json:"players"`
	StartedAt     time.Time      `json:"started_at"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Counters      map[string]any `json:"counters"`
}

// RulesetInfo provides information about a ruleset file
type RulesetInfo struct {
	Filename       string `json:"filename"`
	RulesetID      string `json:"ruleset_id"` // identifier accepted by --rules
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartingHealth int    `json:"starting_health"`
	TickIntervalMs int    `json:"tick_interval_ms"`
	IdleTicks      int    `json:"idle_ticks"` // ticks an idle player survives, 0 if health never decays
}

// NewRulesetInfo summarises rules loaded from filename
func NewRulesetInfo(filename, id string, rules *engine.Rules) *RulesetInfo {
	return &RulesetInfo{
		Filename:       filename,
		RulesetID:      id,
		Name:           rules.Name,
		Description:    rules.Description,
		StartingHealth: rules.StartingHealth,
		TickIntervalMs: rules.TickIntervalMs,
		IdleTicks:      rules.IdleLifetime(),
	}
}
