package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
)

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrRulesetNotFound = errors.New("ruleset not found")
	ErrNoRulesDir      = errors.New("no rules directory configured")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	world     WorldReader
	metrics   *coordinator.Metrics
	rules     engine.Rules
	rulesets  RulesetManager
	startedAt time.Time
	now       func() time.Time
}

// NewGameService creates a game service over a running coordinator.
// rules is the ruleset the coordinator was started with; rulesets may be nil
// when no rules directory is configured.
func NewGameService(world WorldReader, metrics *coordinator.Metrics, rules engine.Rules, rulesets RulesetManager) GameService {
	if metrics == nil {
		metrics = &coordinator.Metrics{}
	}
	return &gameServiceImpl{
		world:     world,
		metrics:   metrics,
		rules:     rules,
		rulesets:  rulesets,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// GetWorld returns every live player in ascending id order
func (s *gameServiceImpl) GetWorld(ctx context.Context) (*WorldState, error) {
	snapshot, err := s.world.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}

	state := &WorldState{
		Players:     make([]engine.Player, 0, len(snapshot)),
		PlayerCount: len(snapshot),
		Ruleset:     s.rules.Name,
		TickMs:      s.rules.TickIntervalMs,
		TakenAt:     s.now(),
	}
	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		p := snapshot[id]
		state.Players = append(state.Players, p)
		if state.Leader == nil || p.Health > state.Leader.Health {
			leader := p
			state.Leader = &leader
		}
	}
	return state, nil
}

// GetPlayer returns one live player
func (s *gameServiceImpl) GetPlayer(ctx context.Context, id engine.PlayerID) (*engine.Player, error) {
	p, found, err := s.world.Player(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	return &p, nil
}

// GetStats reports the coordinator counters
func (s *gameServiceImpl) GetStats(ctx context.Context) (*Stats, error) {
	snapshot, err := s.world.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read world: %w", err)
	}
	return &Stats{
		Players:       len(snapshot),
		StartedAt:     s.startedAt,
		UptimeSeconds: s.now().Sub(s.startedAt).Seconds(),
		Counters:      s.metrics.Snapshot(),
	}, nil
}

// GetRules returns the ruleset the coordinator is running
func (s *gameServiceImpl) GetRules(ctx context.Context) (*engine.Rules, error) {
	rules := s.rules
	return &rules, nil
}

// ListRulesets lists the rulesets found in the rules directory
func (s *gameServiceImpl) ListRulesets(ctx context.Context) ([]*RulesetInfo, error) {
	if s.rulesets == nil {
		return []*RulesetInfo{NewRulesetInfo("", s.rules.Name, &s.rules)}, nil
	}
	return s.rulesets.ListRulesets()
}

// LoadRuleset loads a ruleset by id without applying it
func (s *gameServiceImpl) LoadRuleset(ctx context.Context, name string) (*engine.Rules, error) {
	if s.rulesets == nil {
		if name == s.rules.Name {
			return s.GetRules(ctx)
		}
		return nil, fmt.Errorf("%w: %s", ErrRulesetNotFound, name)
	}

	rules, err := s.rulesets.LoadRules(name)
	if err != nil {
		if errors.Is(err, ErrRulesetNotFound) {
			available, listErr := s.rulesets.ListRulesets()
			if listErr == nil && len(available) > 0 {
				ids := make([]string, 0, len(available))
				for _, r := range available {
					ids = append(ids, r.RulesetID)
				}
				return nil, fmt.Errorf("%w: '%s'. Available rulesets: %s", ErrRulesetNotFound, name, strings.Join(ids, ", "))
			}
		}
		return nil, err
	}
	return rules, nil
}

// ReloadRulesets drops cached rulesets so edits on disk become visible, and
// returns the fresh listing. The running coordinator keeps its rules.
func (s *gameServiceImpl) ReloadRulesets(ctx context.Context) ([]*RulesetInfo, error) {
	if s.rulesets == nil {
		return nil, ErrNoRulesDir
	}
	s.rulesets.RefreshCache()
	return s.rulesets.ListRulesets()
}

// SaveRuleset validates and stores a ruleset. The running coordinator is
// unaffected until the server is restarted with it.
func (s *gameServiceImpl) SaveRuleset(ctx context.Context, name string, rules *engine.Rules) error {
	if s.rulesets == nil {
		return ErrNoRulesDir
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid ruleset id %q", name)
	}
	return s.rulesets.SaveRules(name, rules)
}
