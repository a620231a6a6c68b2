// Package config provides ruleset management for Click Battler.
//
// The config package handles:
//   - Loading rulesets from JSON files
//   - Ruleset validation through engine.ValidateRules
//   - Default ruleset selection
//   - Ruleset discovery and listing
//
// Ruleset Format:
//
// Rulesets are JSON files in the rules directory (configs/rules by default).
// The file name without .json is the ruleset id. Fields left out of a file
// keep their classic value:
//
//	{
//	  "name": "fast",
//	  "description": "Quarter-second ticks",
//	  "starting_health": 10,
//	  "heal_amount": 1,
//	  "attack_damage": 1,
//	  "tick_damage": 1,
//	  "tick_interval_ms": 250,
//	  "client_buffer": 64
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs/rules")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadRules("fast")
//	defaultRules := manager.GetDefault()
//	rulesets, err := manager.ListRulesets()
//
// The default is classic.json when present, otherwise the first valid file,
// otherwise a built-in copy of engine.DefaultRules.
package config
