package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/click-battler/game/engine"
	"github.com/wricardo/click-battler/game/service"
)

var (
	ErrRulesetNotFound = service.ErrRulesetNotFound
	ErrInvalidRules    = errors.New("invalid ruleset")
)

// DefaultRuleset is the ruleset id tried first when picking a default
const DefaultRuleset = "classic"

// Manager handles ruleset loading and caching
type Manager struct {
	rulesDir     string
	defaultRules *engine.Rules
	defaultName  string // empty for the built-in fallback
	rulesets     map[string]*engine.Rules
	mu           sync.RWMutex
}

var _ service.RulesetManager = (*Manager)(nil)

// NewManager creates a ruleset manager over rulesDir
func NewManager(rulesDir string) (*Manager, error) {
	if _, err := os.Stat(rulesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("rules directory does not exist: %s", rulesDir)
	}

	m := &Manager{
		rulesDir: rulesDir,
		rulesets: make(map[string]*engine.Rules),
	}
	m.loadDefaultRules()
	return m, nil
}

// LoadRules loads a ruleset by id (file name without .json)
func (m *Manager) LoadRules(name string) (*engine.Rules, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if rules, exists := m.rulesets[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	rules, err := engine.LoadRules(filepath.Join(m.rulesDir, name+".json"))
	if err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrRulesetNotFound, name)
		case errors.As(err, &pathErr):
			return nil, fmt.Errorf("failed to read ruleset file: %w", err)
		default:
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRules, name, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have loaded it meanwhile; keep the first copy
	if cached, exists := m.rulesets[name]; exists {
		return cached, nil
	}
	m.rulesets[name] = rules
	return rules, nil
}

// ListRulesets returns information about every valid ruleset in the directory
func (m *Manager) ListRulesets() ([]*service.RulesetInfo, error) {
	entries, err := os.ReadDir(m.rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var rulesets []*service.RulesetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		rules, err := m.LoadRules(id)
		if err != nil {
			// Skip invalid rulesets
			continue
		}
		rulesets = append(rulesets, service.NewRulesetInfo(entry.Name(), id, rules))
	}

	return rulesets, nil
}

// GetDefault returns the default ruleset
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultRules
}

// SetDefault sets the default ruleset by id
func (m *Manager) SetDefault(name string) error {
	name = strings.TrimSuffix(name, ".json")
	rules, err := m.LoadRules(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultRules = rules
	m.defaultName = name
	return nil
}

// RefreshCache drops every cached ruleset and rereads the default from
// disk. If the default's file is gone or broken a new default is picked.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.rulesets = make(map[string]*engine.Rules)
	name := m.defaultName
	m.mu.Unlock()

	if name != "" && m.SetDefault(name) == nil {
		return
	}
	m.loadDefaultRules()
}

// loadDefaultRules prefers classic.json, then the first valid file, then a
// built-in minimal ruleset.
func (m *Manager) loadDefaultRules() {
	name := DefaultRuleset
	rules, err := m.LoadRules(name)
	if err != nil {
		rules, name = nil, ""
		if available, listErr := m.ListRulesets(); listErr == nil && len(available) > 0 {
			name = available[0].RulesetID
			rules, _ = m.LoadRules(name)
		}
	}
	if rules == nil {
		rules, name = createMinimalRules(), ""
	}

	m.mu.Lock()
	m.defaultRules = rules
	m.defaultName = name
	m.mu.Unlock()
}

// SaveRules validates a ruleset and writes it to disk
func (m *Manager) SaveRules(name string, rules *engine.Rules) error {
	if err := engine.ValidateRules(rules); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	name = strings.TrimSuffix(name, ".json")
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ruleset: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.rulesDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write ruleset file: %w", err)
	}

	stored := *rules
	m.mu.Lock()
	m.rulesets[name] = &stored
	m.mu.Unlock()

	return nil
}

// createMinimalRules is used when the directory holds no usable ruleset
func createMinimalRules() *engine.Rules {
	rules := engine.DefaultRules()
	rules.Name = "default"
	rules.Description = "Built-in ruleset"
	return &rules
}
