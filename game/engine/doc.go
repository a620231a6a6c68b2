// Package engine provides the game rules and world state for Click Battler.
//
// The engine package implements:
//   - Player identity allocation (monotonic, never reused PlayerIDs)
//   - Heal, attack and passive tick decay rules
//   - Death detection and removal
//   - Snapshots of the player registry
//   - The JSON wire shapes of GameUpdate and ClientMessage
//   - Ruleset loading and validation
//
// Core Types:
//
// World owns the player registry and applies Rules to it. It is deliberately
// not synchronized: exactly one goroutine (the coordinator) owns a World, and
// everything else sees Snapshot copies. GameUpdate and ClientMessage are
// closed tagged variants; their Kind field is dispatched with an exhaustive
// switch.
//
// Usage:
//
//	world, err := engine.NewWorld(engine.DefaultRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p := world.Spawn()
//	died, ok, err := world.Apply(p.ID, engine.HealSelf())
//	died = world.Tick()
//	snapshot := world.Snapshot()
//
// Game Rules:
//
// Every player starts with StartingHealth. HealSelf adds HealAmount to the
// acting player, AttackPlayer removes AttackDamage from the target, and each
// tick removes TickDamage from everyone. A player whose health reaches zero
// is removed from the world immediately.
package engine
