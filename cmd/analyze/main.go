// Command analyze prints quick, human-readable balance numbers for the
// rulesets in configs/rules: how long an idle player lives, how fast a
// player must click to outheal the decay, and how many attackers it takes
// to bring down a player who keeps healing.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/wricardo/click-battler/game/config"
	"github.com/wricardo/click-battler/game/engine"
)

// humanClickRate is the sustained clicks per second assumed for a player
const humanClickRate = 5.0

// Analysis is the balance summary for one ruleset
type Analysis struct {
	Name string

	// IdleTicks and IdleSeconds are how long a player who never heals survives
	IdleTicks   int
	IdleSeconds float64

	// BreakEvenRate is the heals per second that cancel the tick decay.
	// +Inf when healing cannot keep up at any rate.
	BreakEvenRate float64

	// HitsToKill is the attacks that take a fresh player to zero
	HitsToKill int

	// AttackersToBreak is how many attackers clicking at the given rate
	// overwhelm one player healing at the same rate. 0 when attacks do nothing.
	AttackersToBreak int
}

func analyze(rules engine.Rules, clickRate float64) Analysis {
	a := Analysis{
		Name:      rules.Name,
		IdleTicks: rules.IdleLifetime(),
	}
	tickSeconds := rules.TickInterval().Seconds()
	a.IdleSeconds = float64(a.IdleTicks) * tickSeconds

	decayPerSecond := float64(rules.TickDamage) / tickSeconds
	switch {
	case rules.TickDamage == 0:
		a.BreakEvenRate = 0
	case rules.HealAmount == 0:
		a.BreakEvenRate = math.Inf(1)
	default:
		a.BreakEvenRate = decayPerSecond / float64(rules.HealAmount)
	}

	if rules.AttackDamage > 0 {
		a.HitsToKill = (rules.StartingHealth + rules.AttackDamage - 1) / rules.AttackDamage

		gain := clickRate*float64(rules.HealAmount) - decayPerSecond
		perAttacker := clickRate * float64(rules.AttackDamage)
		if gain < 0 {
			a.AttackersToBreak = 1
		} else {
			a.AttackersToBreak = int(math.Floor(gain/perAttacker)) + 1
		}
	}
	return a
}

func main() {
	dir := "configs/rules"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	rulesets, err := manager.ListRulesets()
	if err != nil {
		fmt.Printf("Error listing rulesets: %v\n", err)
		os.Exit(1)
	}

	for _, info := range rulesets {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		rules, err := manager.LoadRules(info.RulesetID)
		if err != nil {
			fmt.Printf("Error loading ruleset: %v\n", err)
			continue
		}
		printAnalysis(analyze(*rules, humanClickRate))
	}
}

func printAnalysis(a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	if a.IdleTicks == 0 {
		fmt.Printf("Idle players never decay\n")
	} else {
		fmt.Printf("Idle lifetime: %d ticks (%.1fs)\n", a.IdleTicks, a.IdleSeconds)
	}

	switch {
	case math.IsInf(a.BreakEvenRate, 1):
		fmt.Printf("⚠️  Healing is disabled: every player dies after the idle lifetime\n")
	case a.BreakEvenRate > humanClickRate:
		fmt.Printf("⚠️  Break-even heal rate %.1f clicks/s is faster than a human can click\n", a.BreakEvenRate)
	default:
		fmt.Printf("Break-even heal rate: %.1f clicks/s\n", a.BreakEvenRate)
	}

	if a.HitsToKill == 0 {
		fmt.Printf("Attacks do no damage\n")
		return
	}
	fmt.Printf("Hits to kill a fresh player: %d\n", a.HitsToKill)
	fmt.Printf("Attackers to overwhelm a healer at %.0f clicks/s: %d\n", humanClickRate, a.AttackersToBreak)
}
