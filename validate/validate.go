// Command validate checks the ruleset JSON files used by the Click Battler
// server. It scans ../configs/rules by default, or the directory given as the
// first argument, and checks:
//   - JSON structure, including unknown keys
//   - Every field against the limits the coordinator accepts
//   - Gameplay sanity: whether idle players ever die and whether healing can
//     outpace the tick decay
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/click-battler/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateRuleset loads and validates a single ruleset file
func validateRuleset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	// Unknown keys are silently ignored by the server, which hides typos
	strict := json.NewDecoder(bytes.NewReader(data))
	strict.DisallowUnknownFields()
	var strictRules engine.Rules
	if err := strict.Decode(&strictRules); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	rules, err := engine.ParseRules(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	checkGameplay(&result, rules)
	if !result.Valid {
		return result
	}

	result.info("Name: %s", rules.Name)
	result.info("Health: start %d, heal +%d, attack -%d", rules.StartingHealth, rules.HealAmount, rules.AttackDamage)
	result.info("Tick: -%d every %v", rules.TickDamage, rules.TickInterval())
	if lifetime := rules.IdleLifetime(); lifetime > 0 {
		result.info("Idle players die after %d ticks (%v)", lifetime, time.Duration(lifetime)*rules.TickInterval())
	}
	result.info("Client buffer: %d updates", rules.ClientBuffer)
	return result
}

// checkGameplay flags rulesets that load fine but make a pointless game
func checkGameplay(result *ValidationResult, rules *engine.Rules) {
	if rules.HealAmount == 0 && rules.AttackDamage == 0 {
		result.fail("heal_amount and attack_damage are both 0: player actions have no effect")
	}
	if rules.TickDamage == 0 && rules.AttackDamage == 0 {
		result.fail("tick_damage and attack_damage are both 0: nobody can ever die")
	}
}

// validateDir validates every *.json file in dir
func validateDir(dir string) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("finding ruleset files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ruleset files in %s", dir)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateRuleset(file))
	}
	return results, nil
}

// main validates the rulesets, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	dir := "../configs/rules"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	results, err := validateDir(dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
			continue
		}

		fmt.Println("❌ INVALID")
		allValid = false
		for _, err := range result.Errors {
			if !strings.HasPrefix(err, "✓") {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All rulesets are valid!")
	} else {
		fmt.Println("❌ Some rulesets have errors")
		os.Exit(1)
	}
}
