package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
	"github.com/wricardo/click-battler/game/service"
)

// MockWorld implements service.WorldReader for testing
type MockWorld struct {
	snapshot engine.Snapshot
	err      error
}

func (m *MockWorld) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(engine.Snapshot, len(m.snapshot))
	for id, p := range m.snapshot {
		out[id] = p
	}
	return out, nil
}

func (m *MockWorld) Player(ctx context.Context, id engine.PlayerID) (engine.Player, bool, error) {
	if m.err != nil {
		return engine.Player{}, false, m.err
	}
	p, ok := m.snapshot[id]
	return p, ok, nil
}

// MockRulesetManager implements service.RulesetManager for testing
type MockRulesetManager struct {
	rulesets  map[string]*engine.Rules
	saved     map[string]*engine.Rules
	refreshes int
}

func NewMockRulesetManager() *MockRulesetManager {
	classic := engine.DefaultRules()
	fast := engine.DefaultRules()
	fast.Name = "fast"
	fast.TickIntervalMs = 250
	return &MockRulesetManager{
		rulesets: map[string]*engine.Rules{"classic": &classic, "fast": &fast},
		saved:    make(map[string]*engine.Rules),
	}
}

func (m *MockRulesetManager) LoadRules(name string) (*engine.Rules, error) {
	if r, ok := m.rulesets[name]; ok {
		return r, nil
	}
	return nil, service.ErrRulesetNotFound
}

func (m *MockRulesetManager) ListRulesets() ([]*service.RulesetInfo, error) {
	var out []*service.RulesetInfo
	for _, id := range []string{"classic", "fast"} {
		out = append(out, service.NewRulesetInfo(id+".json", id, m.rulesets[id]))
	}
	return out, nil
}

func (m *MockRulesetManager) GetDefault() *engine.Rules {
	return m.rulesets["classic"]
}

func (m *MockRulesetManager) SaveRules(name string, rules *engine.Rules) error {
	if err := engine.ValidateRules(rules); err != nil {
		return err
	}
	m.saved[name] = rules
	return nil
}

func (m *MockRulesetManager) RefreshCache() {
	m.refreshes++
}

func newWorld(players ...engine.Player) *MockWorld {
	s := make(engine.Snapshot)
	for _, p := range players {
		s[p.ID] = p
	}
	return &MockWorld{snapshot: s}
}

func TestGameService_GetWorld(t *testing.T) {
	world := newWorld(
		engine.Player{ID: 3, Health: 7},
		engine.Player{ID: 1, Health: 12},
		engine.Player{ID: 2, Health: 12},
	)
	svc := service.NewGameService(world, nil, engine.DefaultRules(), nil)

	state, err := svc.GetWorld(context.Background())
	if err != nil {
		t.Fatalf("GetWorld() error = %v", err)
	}

	if state.PlayerCount != 3 {
		t.Errorf("Expected 3 players, got %d", state.PlayerCount)
	}
	for i, want := range []engine.PlayerID{1, 2, 3} {
		if state.Players[i].ID != want {
			t.Errorf("Players[%d].ID = %d, want %d", i, state.Players[i].ID, want)
		}
	}
	if state.Leader == nil || state.Leader.ID != 1 {
		t.Errorf("Expected leader 1 (ties go to the lowest id), got %+v", state.Leader)
	}
	if state.Ruleset != "classic" || state.TickMs != 1000 {
		t.Errorf("Unexpected ruleset info %q %d", state.Ruleset, state.TickMs)
	}
}

func TestGameService_GetWorldEmpty(t *testing.T) {
	svc := service.NewGameService(newWorld(), nil, engine.DefaultRules(), nil)

	state, err := svc.GetWorld(context.Background())
	if err != nil {
		t.Fatalf("GetWorld() error = %v", err)
	}
	if state.Players == nil || len(state.Players) != 0 {
		t.Errorf("Expected empty non-nil players, got %#v", state.Players)
	}
	if state.Leader != nil {
		t.Errorf("Expected no leader, got %+v", state.Leader)
	}
}

func TestGameService_GetWorldCoordinatorStopped(t *testing.T) {
	world := &MockWorld{err: coordinator.ErrCoordinatorStopped}
	svc := service.NewGameService(world, nil, engine.DefaultRules(), nil)

	_, err := svc.GetWorld(context.Background())
	if !errors.Is(err, coordinator.ErrCoordinatorStopped) {
		t.Errorf("Expected ErrCoordinatorStopped, got %v", err)
	}
}

func TestGameService_GetPlayer(t *testing.T) {
	svc := service.NewGameService(newWorld(engine.Player{ID: 4, Health: 2}), nil, engine.DefaultRules(), nil)

	p, err := svc.GetPlayer(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetPlayer() error = %v", err)
	}
	if p.Health != 2 {
		t.Errorf("Expected health 2, got %d", p.Health)
	}

	_, err = svc.GetPlayer(context.Background(), 5)
	if !errors.Is(err, service.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}

	stopped := service.NewGameService(&MockWorld{err: coordinator.ErrCoordinatorStopped}, nil, engine.DefaultRules(), nil)
	if _, err := stopped.GetPlayer(context.Background(), 4); !errors.Is(err, coordinator.ErrCoordinatorStopped) {
		t.Errorf("Expected ErrCoordinatorStopped, got %v", err)
	}
}

func TestGameService_ReloadRulesets(t *testing.T) {
	manager := NewMockRulesetManager()
	svc := service.NewGameService(newWorld(), nil, engine.DefaultRules(), manager)

	list, err := svc.ReloadRulesets(context.Background())
	if err != nil {
		t.Fatalf("ReloadRulesets() error = %v", err)
	}
	if manager.refreshes != 1 {
		t.Errorf("Expected 1 cache refresh, got %d", manager.refreshes)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 rulesets, got %d", len(list))
	}
}

func TestGameService_GetStats(t *testing.T) {
	metrics := &coordinator.Metrics{}
	metrics.Connects.Add(3)
	metrics.Disconnects.Add(1)

	svc := service.NewGameService(newWorld(engine.Player{ID: 0, Health: 1}), metrics, engine.DefaultRules(), nil)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Players != 1 {
		t.Errorf("Expected 1 player, got %d", stats.Players)
	}
	if stats.Counters["connects"] != int64(3) || stats.Counters["disconnects"] != int64(1) {
		t.Errorf("Unexpected counters %v", stats.Counters)
	}
	if stats.UptimeSeconds < 0 {
		t.Errorf("Negative uptime %f", stats.UptimeSeconds)
	}
}

func TestGameService_Rulesets(t *testing.T) {
	rulesets := NewMockRulesetManager()
	svc := service.NewGameService(newWorld(), nil, engine.DefaultRules(), rulesets)
	ctx := context.Background()

	list, err := svc.ListRulesets(ctx)
	if err != nil {
		t.Fatalf("ListRulesets() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 rulesets, got %d", len(list))
	}
	if list[0].IdleTicks != 10 {
		t.Errorf("Expected classic to survive 10 idle ticks, got %d", list[0].IdleTicks)
	}

	fast, err := svc.LoadRuleset(ctx, "fast")
	if err != nil {
		t.Fatalf("LoadRuleset(fast) error = %v", err)
	}
	if fast.TickIntervalMs != 250 {
		t.Errorf("Expected 250ms ticks, got %d", fast.TickIntervalMs)
	}

	_, err = svc.LoadRuleset(ctx, "nope")
	if !errors.Is(err, service.ErrRulesetNotFound) {
		t.Fatalf("Expected ErrRulesetNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "classic, fast") {
		t.Errorf("Expected available rulesets in error, got %v", err)
	}
}

func TestGameService_SaveRuleset(t *testing.T) {
	rulesets := NewMockRulesetManager()
	svc := service.NewGameService(newWorld(), nil, engine.DefaultRules(), rulesets)
	ctx := context.Background()

	rules := engine.DefaultRules()
	rules.Name = "brutal"
	rules.AttackDamage = 5
	if err := svc.SaveRuleset(ctx, "brutal", &rules); err != nil {
		t.Fatalf("SaveRuleset() error = %v", err)
	}
	if rulesets.saved["brutal"] == nil {
		t.Error("Expected ruleset to be saved")
	}

	for _, bad := range []string{"", "../etc", ".hidden", `a\b`} {
		if err := svc.SaveRuleset(ctx, bad, &rules); err == nil {
			t.Errorf("Expected error for id %q", bad)
		}
	}
}

func TestGameService_NoRulesDirectory(t *testing.T) {
	svc := service.NewGameService(newWorld(), nil, engine.DefaultRules(), nil)
	ctx := context.Background()

	list, err := svc.ListRulesets(ctx)
	if err != nil || len(list) != 1 || list[0].RulesetID != "classic" {
		t.Errorf("Expected only the active ruleset, got %v %v", list, err)
	}
	if _, err := svc.LoadRuleset(ctx, "classic"); err != nil {
		t.Errorf("LoadRuleset(classic) error = %v", err)
	}
	if _, err := svc.LoadRuleset(ctx, "fast"); !errors.Is(err, service.ErrRulesetNotFound) {
		t.Errorf("Expected ErrRulesetNotFound, got %v", err)
	}
	rules := engine.DefaultRules()
	if err := svc.SaveRuleset(ctx, "x", &rules); !errors.Is(err, service.ErrNoRulesDir) {
		t.Errorf("Expected ErrNoRulesDir, got %v", err)
	}
	if _, err := svc.ReloadRulesets(ctx); !errors.Is(err, service.ErrNoRulesDir) {
		t.Errorf("Expected ErrNoRulesDir, got %v", err)
	}
}
