// Package appconfig loads the process configuration: listen address,
// ruleset selection, logging, NATS and ngrok settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (a .env file is loaded into the environment by the
// caller), then command line flags.
package appconfig

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of config.yaml
type Config struct {
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`
	Log    LogConfig    `yaml:"log"`
	NATS   NATSConfig   `yaml:"nats"`
	Ngrok  NgrokConfig  `yaml:"ngrok"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GameConfig struct {
	// Ruleset is the id of a file in RulesDir; empty uses the directory default
	Ruleset   string `yaml:"ruleset"`
	RulesDir  string `yaml:"rules_dir"`
	StaticDir string `yaml:"static_dir"`
	QueueSize int    `yaml:"queue_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	File   string `yaml:"file"`   // rolling file in addition to stderr
	Format string `yaml:"format"` // console or json
}

type NATSConfig struct {
	URL           string `yaml:"url"` // empty disables the feed
	SubjectPrefix string `yaml:"subject_prefix"`
}

type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3030,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Game: GameConfig{
			RulesDir:  "configs/rules",
			StaticDir: "static",
			QueueSize: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		NATS: NATSConfig{
			SubjectPrefix: "clickbattler",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	str(&c.Server.Host, "HOST")
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	str(&c.Game.Ruleset, "RULESET")
	str(&c.Game.RulesDir, "RULES_DIR", "CONFIG_DIR")
	str(&c.Game.StaticDir, "STATIC_DIR")

	str(&c.Log.Level, "LOG_LEVEL")
	str(&c.Log.File, "LOG_FILE")
	str(&c.Log.Format, "LOG_FORMAT")

	str(&c.NATS.URL, "NATS_URL")
	str(&c.NATS.SubjectPrefix, "NATS_SUBJECT_PREFIX")

	if v, ok := lookup("NGROK_ENABLED"); ok {
		c.Ngrok.Enabled = v == "true" || v == "1"
	}
	str(&c.Ngrok.AuthToken, "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	str(&c.Ngrok.Domain, "NGROK_DOMAIN")

	return nil
}

// Validate reports the first unusable value
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Game.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.Game.QueueSize)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q, want console or json", ErrInvalidConfig, c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		return fmt.Errorf("%w: ngrok enabled without an auth token (set NGROK_AUTHTOKEN)", ErrInvalidConfig)
	}
	return nil
}

// Addr is the host:port the HTTP server listens on
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
