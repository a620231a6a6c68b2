package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Validation limits for rulesets
const (
	MinStartingHealth = 1
	MaxStartingHealth = 1000
	MaxHealAmount     = 100
	MaxDamage         = 100
	MinTickInterval   = 10 * time.Millisecond
	MaxTickInterval   = time.Minute
	MinClientBuffer   = 1
	MaxClientBuffer   = 4096
)

// Rules is the tunable ruleset driving the world. The zero value is not
// usable; start from DefaultRules.
type Rules struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartingHealth int    `json:"starting_health"`
	HealAmount     int    `json:"heal_amount"`
	AttackDamage   int    `json:"attack_damage"`
	TickDamage     int    `json:"tick_damage"`
	TickIntervalMs int    `json:"tick_interval_ms"`

	// ClientBuffer is the capacity of each client's outbound update queue.
	ClientBuffer int `json:"client_buffer"`
}

// DefaultRules returns the classic ruleset: 10 health, +1 heal, -1 per attack
// and -1 per one-second tick.
func DefaultRules() Rules {
	return Rules{
		Name:           "classic",
		Description:    "Start at 10 health, heal 1, hit 1, decay 1 per second",
		StartingHealth: 10,
		HealAmount:     1,
		AttackDamage:   1,
		TickDamage:     1,
		TickIntervalMs: 1000,
		ClientBuffer:   64,
	}
}

// TickInterval returns the period between world ticks
func (r Rules) TickInterval() time.Duration {
	return time.Duration(r.TickIntervalMs) * time.Millisecond
}

// IdleLifetime is how many ticks an idle player survives from spawn
func (r Rules) IdleLifetime() int {
	if r.TickDamage <= 0 {
		return 0
	}
	return (r.StartingHealth + r.TickDamage - 1) / r.TickDamage
}

// ValidateRules checks a ruleset for values the coordinator can run with
func ValidateRules(rules *Rules) error {
	if rules == nil {
		return fmt.Errorf("rules validation: rules are required")
	}
	if rules.Name == "" {
		return fmt.Errorf("rules validation: name is required")
	}
	if rules.StartingHealth < MinStartingHealth || rules.StartingHealth > MaxStartingHealth {
		return fmt.Errorf("rules validation: starting_health must be between %d and %d, got %d",
			MinStartingHealth, MaxStartingHealth, rules.StartingHealth)
	}
	if rules.HealAmount < 0 || rules.HealAmount > MaxHealAmount {
		return fmt.Errorf("rules validation: heal_amount must be between 0 and %d, got %d", MaxHealAmount, rules.HealAmount)
	}
	if rules.AttackDamage < 0 || rules.AttackDamage > MaxDamage {
		return fmt.Errorf("rules validation: attack_damage must be between 0 and %d, got %d", MaxDamage, rules.AttackDamage)
	}
	if rules.TickDamage < 0 || rules.TickDamage > MaxDamage {
		return fmt.Errorf("rules validation: tick_damage must be between 0 and %d, got %d", MaxDamage, rules.TickDamage)
	}

	interval := rules.TickInterval()
	if interval < MinTickInterval || interval > MaxTickInterval {
		return fmt.Errorf("rules validation: tick_interval_ms must be between %d and %d, got %d",
			MinTickInterval.Milliseconds(), MaxTickInterval.Milliseconds(), rules.TickIntervalMs)
	}
	if rules.ClientBuffer < MinClientBuffer || rules.ClientBuffer > MaxClientBuffer {
		return fmt.Errorf("rules validation: client_buffer must be between %d and %d, got %d",
			MinClientBuffer, MaxClientBuffer, rules.ClientBuffer)
	}

	return nil
}

// LoadRules reads and validates a ruleset JSON file. Fields missing from the
// file keep their DefaultRules value.
func LoadRules(filename string) (*Rules, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", filename, err)
	}

	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rules, nil
}

// ParseRules decodes a ruleset on top of DefaultRules and validates it
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := ValidateRules(&rules); err != nil {
		return nil, err
	}
	return &rules, nil
}
