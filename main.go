// Command click-battler starts the Click Battler server.
//
// It supports two modes:
//  1. "server" (default) runs the coordinator and the HTTP server exposing the
//     /chat websocket, the REST API, static files and an /mcp endpoint
//  2. "stdio-mcp" runs the same server on a loopback port and serves MCP over
//     stdio against it
//
// Settings come from built-in defaults, an optional YAML file (--config), the
// environment (a .env file is loaded first) and finally command line flags.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/click-battler/appconfig"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Click Battler Server"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if envErr != nil && !os.IsNotExist(envErr) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", envErr)
	}

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags are declared on the root and are
// visible to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "click-battler",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", Sources: cli.EnvVars("CONFIG_FILE")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "rules-dir", Usage: "Directory containing ruleset JSON files"},
			&cli.StringFlag{Name: "ruleset", Aliases: []string{"r"}, Usage: "Ruleset id to run (default: classic)"},
			&cli.StringFlag{Name: "static-dir", Usage: "Directory served at /"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-file", Usage: "Also write logs to this rolling file"},
			&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
			&cli.StringFlag{Name: "nats-url", Usage: "Publish every broadcast to this NATS server"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain"},
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with websocket, REST API and MCP endpoint (default)",
				Action:  runServerCommand,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP over stdio backed by an internal HTTP server",
				Action:  runStdioCommand,
			},
		},
	}
}

// loadConfig layers the YAML file, the environment and explicitly set flags
func loadConfig(cmd *cli.Command, lookupEnv func(string) (string, bool)) (appconfig.Config, error) {
	cfg, err := appconfig.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(lookupEnv); err != nil {
		return cfg, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("rules-dir") {
		cfg.Game.RulesDir = cmd.String("rules-dir")
	}
	if cmd.IsSet("ruleset") {
		cfg.Game.Ruleset = cmd.String("ruleset")
	}
	if cmd.IsSet("static-dir") {
		cfg.Game.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}
	if cmd.IsSet("nats-url") {
		cfg.NATS.URL = cmd.String("nats-url")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	return cfg, cfg.Validate()
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	app, err := newServerApp(cmd)
	if err != nil {
		return err
	}
	defer app.close()
	return app.runHTTPServer(ctx)
}

func runStdioCommand(ctx context.Context, cmd *cli.Command) error {
	app, err := newServerApp(cmd)
	if err != nil {
		return err
	}
	defer app.close()
	return app.runStdioMCP(ctx)
}
