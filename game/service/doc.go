// Package service provides the query layer for Click Battler.
//
// The service package implements:
//   - Read-only views of the live world (players, leader)
//   - Server statistics backed by the coordinator counters
//   - Ruleset discovery, loading and storage
//
// Core Interfaces:
//
// GameService is the interface the REST API and the MCP tools are written
// against. WorldReader is satisfied by coordinator.Handle, so every read goes
// through the coordinator's event queue and never touches game state
// directly. RulesetManager is implemented by the config package.
//
// Usage:
//
//	rulesets, _ := config.NewManager("configs/rules")
//	svc := service.NewGameService(coord.Handle(), coord.Metrics(), coord.Rules(), rulesets)
//
//	state, err := svc.GetWorld(ctx)
//
// Gameplay actions are not part of this package; they only arrive over the
// websocket transport.
package service
