package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/click-battler/api"
	"github.com/wricardo/click-battler/appconfig"
	"github.com/wricardo/click-battler/game/config"
	"github.com/wricardo/click-battler/game/coordinator"
	"github.com/wricardo/click-battler/game/engine"
	"github.com/wricardo/click-battler/game/service"
	"github.com/wricardo/click-battler/logging"
	"github.com/wricardo/click-battler/transport/mcp"
	"github.com/wricardo/click-battler/transport/natsfeed"
	"github.com/wricardo/click-battler/transport/websocket"
)

// serverApp holds everything a running server needs
type serverApp struct {
	cfg      appconfig.Config
	logger   *zap.Logger
	sync     func()
	coord    *coordinator.Coordinator
	rulesets *config.Manager // nil without a rules directory
	service  service.GameService
}

func newServerApp(cmd *cli.Command) (*serverApp, error) {
	cfg, err := loadConfig(cmd, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	logger, syncLogs, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	app, err := initializeServices(cfg, logger)
	if err != nil {
		syncLogs()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.sync = syncLogs
	return app, nil
}

// initializeServices picks the ruleset and wires the coordinator, the
// ruleset manager and the game service.
func initializeServices(cfg appconfig.Config, logger *zap.Logger) (*serverApp, error) {
	var rulesets *config.Manager
	if _, err := os.Stat(cfg.Game.RulesDir); err == nil {
		rulesets, err = config.NewManager(cfg.Game.RulesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create ruleset manager: %w", err)
		}
	} else if cfg.Game.Ruleset != "" {
		return nil, fmt.Errorf("ruleset %q requested but rules directory %s is missing", cfg.Game.Ruleset, cfg.Game.RulesDir)
	} else {
		logger.Warn("rules directory not found, using built-in rules", zap.String("rules_dir", cfg.Game.RulesDir))
	}

	rules := engine.DefaultRules()
	switch {
	case rulesets != nil && cfg.Game.Ruleset != "":
		if err := rulesets.SetDefault(cfg.Game.Ruleset); err != nil {
			return nil, err
		}
		rules = *rulesets.GetDefault()
	case rulesets != nil:
		rules = *rulesets.GetDefault()
	}

	coord, err := coordinator.New(rules,
		coordinator.WithLogger(logger.Named("coordinator")),
		coordinator.WithQueueSize(cfg.Game.QueueSize),
	)
	if err != nil {
		return nil, err
	}

	var manager service.RulesetManager
	if rulesets != nil {
		manager = rulesets
	}

	return &serverApp{
		cfg:      cfg,
		logger:   logger,
		sync:     func() {},
		coord:    coord,
		rulesets: rulesets,
		service:  service.NewGameService(coord.Handle(), coord.Metrics(), rules, manager),
	}, nil
}

func (a *serverApp) close() {
	a.sync()
}

// handler combines the REST API, the websocket route, static files and the
// MCP endpoint. selfURL is where MCP tools reach the REST API.
func (a *serverApp) handler(selfURL string) http.Handler {
	chat := websocket.NewHandler(a.coord.Handle(), a.coord.Metrics(), a.logger.Named("websocket"))
	apiServer := api.NewServer(a.service, chat, a.cfg.Game.StaticDir, a.logger.Named("api"))
	mcpClient := mcp.NewClient(selfURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.Handle("/mcp", mcpClient)
	return mainRouter
}

// startCoordinator runs the coordinator until ctx ends
func (a *serverApp) startCoordinator(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.coord.Run(ctx); err != nil {
			a.logger.Error("coordinator stopped", zap.Error(err))
		}
	}()
}

// startNATSFeed connects to NATS and mirrors broadcasts until ctx ends
func (a *serverApp) startNATSFeed(ctx context.Context, wg *sync.WaitGroup) error {
	if a.cfg.NATS.URL == "" {
		return nil
	}
	conn, err := natsfeed.Dial(a.cfg.NATS.URL, a.logger.Named("nats"))
	if err != nil {
		return err
	}

	feed := natsfeed.NewFeed(a.coord.Handle(), conn, a.cfg.NATS.SubjectPrefix, a.logger.Named("nats"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feed.Run(ctx); err != nil {
			a.logger.Error("nats feed failed", zap.Error(err))
		}
		if err := conn.Drain(); err != nil {
			a.logger.Warn("nats drain failed", zap.Error(err))
		}
	}()
	return nil
}

// runHTTPServer serves until ctx is cancelled, then shuts everything down
func (a *serverApp) runHTTPServer(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	a.startCoordinator(ctx, &wg)
	if err := a.startNATSFeed(ctx, &wg); err != nil {
		cancel()
		wg.Wait()
		return err
	}

	addr := a.cfg.Addr()
	mainRouter := a.handler(selfURL(a.cfg))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("ruleset", a.coord.Rules().Name),
			zap.String("websocket", fmt.Sprintf("ws://%s/chat", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if a.cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.serveNgrok(ctx, mainRouter)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	// Stopping the coordinator closes every client channel, which ends the
	// websocket sessions and the NATS feed.
	cancel()
	wg.Wait()
	a.logger.Info("server stopped")
	return runErr
}

// serveNgrok exposes handler through an ngrok tunnel until ctx ends
func (a *serverApp) serveNgrok(ctx context.Context, handler http.Handler) {
	var tunnel ngrokConfig.Tunnel
	if a.cfg.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(a.cfg.Ngrok.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(a.cfg.Ngrok.AuthToken))
	if err != nil {
		a.logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	ngrokURL := tun.URL()
	a.logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("websocket", ngrokURL+"/chat"),
	)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
		tun.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Warn("ngrok server error", zap.Error(err))
	}
	a.logger.Info("ngrok tunnel closed")
}

// runStdioMCP starts the coordinator and an HTTP server on a random loopback
// port, then serves MCP over stdio against it.
func (a *serverApp) runStdioMCP(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	a.startCoordinator(ctx, &wg)
	if err := a.startNATSFeed(ctx, &wg); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	httpServer := &http.Server{Handler: a.handler(baseURL)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	defer httpServer.Close()

	a.logger.Info("MCP stdio server ready", zap.String("internal_api", baseURL))

	mcpClient := mcp.NewClient(baseURL)
	stdio := server.NewStdioServer(mcpClient.GetMCPServer())
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// selfURL is the loopback address the MCP tools use to reach this server
func selfURL(cfg appconfig.Config) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
}
