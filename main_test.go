package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/appconfig"
	"github.com/wricardo/click-battler/game/service"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Click Battler Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func noEnv(string) (string, bool) { return "", false }

// parseConfig runs the root command with args and returns the layered config
func parseConfig(t *testing.T, args []string, env func(string) (string, bool)) (appconfig.Config, error) {
	t.Helper()
	var (
		cfg appconfig.Config
		err error
	)
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, err = loadConfig(cmd, env)
		return nil
	}
	if runErr := app.Run(context.Background(), append([]string{"click-battler"}, args...)); runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}
	return cfg, err
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, nil, noEnv)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Addr() != "0.0.0.0:3030" {
		t.Errorf("Expected default addr 0.0.0.0:3030, got %s", cfg.Addr())
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := "server:\n  port: 7000\n  host: 10.0.0.1\ngame:\n  ruleset: fast\n"
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}
	env := func(k string) (string, bool) {
		if k == "PORT" {
			return "8000", true
		}
		return "", false
	}

	cfg, err := parseConfig(t, []string{"--config", path, "--ruleset", "classic", "--debug"}, env)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Server.Host != "10.0.0.1" {
		t.Errorf("Expected host from file, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Expected env to override file port, got %d", cfg.Server.Port)
	}
	if cfg.Game.Ruleset != "classic" {
		t.Errorf("Expected flag to override file ruleset, got %s", cfg.Game.Ruleset)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected --debug to set level, got %s", cfg.Log.Level)
	}

	cfg, err = parseConfig(t, []string{"--config", path, "--port", "9000"}, env)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected flag to override env port, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := parseConfig(t, []string{"--ngrok"}, noEnv)
	if !errors.Is(err, appconfig.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for ngrok without token, got %v", err)
	}

	_, err = parseConfig(t, []string{"--config", "/non/existent/config.yaml"}, noEnv)
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func writeRuleset(t *testing.T, dir, name string, rules map[string]any) {
	t.Helper()
	data, _ := json.Marshal(rules)
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(rulesDir string) appconfig.Config {
	cfg := appconfig.Default()
	cfg.Game.RulesDir = rulesDir
	cfg.Game.StaticDir = ""
	return cfg
}

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()
	writeRuleset(t, dir, "classic", map[string]any{"name": "classic"})
	writeRuleset(t, dir, "fast", map[string]any{"name": "fast", "tick_interval_ms": 250})

	t.Run("default ruleset", func(t *testing.T) {
		app, err := initializeServices(testConfig(dir), zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to initialize services: %v", err)
		}
		if app.coord.Rules().Name != "classic" {
			t.Errorf("Expected classic, got %s", app.coord.Rules().Name)
		}
		if app.rulesets == nil || app.service == nil {
			t.Error("Expected ruleset manager and service")
		}
	})

	t.Run("selected ruleset", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Game.Ruleset = "fast"
		app, err := initializeServices(cfg, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to initialize services: %v", err)
		}
		if app.coord.Rules().TickIntervalMs != 250 {
			t.Errorf("Expected 250ms ticks, got %d", app.coord.Rules().TickIntervalMs)
		}
		// The selection survives a reload of the rules directory
		app.rulesets.RefreshCache()
		if got := app.rulesets.GetDefault().Name; got != "fast" {
			t.Errorf("Expected fast to stay the default, got %s", got)
		}
	})

	t.Run("unknown ruleset", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Game.Ruleset = "nope"
		_, err := initializeServices(cfg, zap.NewNop())
		if !errors.Is(err, service.ErrRulesetNotFound) {
			t.Errorf("Expected ErrRulesetNotFound, got %v", err)
		}
	})

	t.Run("missing rules directory", func(t *testing.T) {
		app, err := initializeServices(testConfig("/non/existent/path"), zap.NewNop())
		if err != nil {
			t.Fatalf("Expected built-in rules, got error: %v", err)
		}
		if app.rulesets != nil || app.coord.Rules().Name != "classic" {
			t.Errorf("Expected built-in classic rules without manager")
		}
	})

	t.Run("missing rules directory with ruleset", func(t *testing.T) {
		cfg := testConfig("/non/existent/path")
		cfg.Game.Ruleset = "fast"
		if _, err := initializeServices(cfg, zap.NewNop()); err == nil {
			t.Error("Expected error when a ruleset is requested without a rules directory")
		}
	})
}

func TestHandler_EndToEnd(t *testing.T) {
	app, err := initializeServices(testConfig(t.TempDir()), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	app.startCoordinator(ctx, &wg)
	defer func() {
		cancel()
		wg.Wait()
	}()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv := httptest.NewUnstartedServer(app.handler("http://" + listener.Addr().String()))
	srv.Listener.Close()
	srv.Listener = listener
	srv.Start()
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, id, err := conn.ReadMessage()
	if err != nil || string(id) != "0" {
		t.Fatalf("Expected id frame 0, got %s (%v)", id, err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/world")
	if err != nil {
		t.Fatalf("GET /api/world: %v", err)
	}
	var state service.WorldState
	json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()
	if state.PlayerCount != 1 {
		t.Errorf("Expected 1 player in world, got %d", state.PlayerCount)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"world_state","arguments":{}}}`
	resp, err = http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /mcp: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "Players alive: 1") {
		t.Errorf("Expected world_state tool to see the player, got %s", data)
	}
}

func TestSelfURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"0.0.0.0", "http://127.0.0.1:3030"},
		{"", "http://127.0.0.1:3030"},
		{"localhost", "http://localhost:3030"},
		{"::1", "http://[::1]:3030"},
	}
	for _, tt := range tests {
		cfg := appconfig.Default()
		cfg.Server.Host = tt.host
		if got := selfURL(cfg); got != tt.want {
			t.Errorf("selfURL(%q) = %s, want %s", tt.host, got, tt.want)
		}
	}
}
