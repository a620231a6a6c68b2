// Command bot connects a crowd of websocket bots to a Click Battler server
// and lets them heal and attack until the time runs out. It is useful for
// load testing the coordinator and for watching a busy arena in the browser.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/click-battler/appconfig"
	"github.com/wricardo/click-battler/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Connect websocket bots to a Click Battler server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3030/chat", Usage: "Websocket endpoint", Sources: cli.EnvVars("BOT_URL")},
			&cli.IntFlag{Name: "bots", Aliases: []string{"n"}, Value: 5, Usage: "Number of concurrent bots"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Value: 30 * time.Second, Usage: "How long to play (0 = until every bot dies)"},
			&cli.DurationFlag{Name: "interval", Value: 250 * time.Millisecond, Usage: "Delay between actions per bot"},
			&cli.IntFlag{Name: "heal-below", Value: 5, Usage: "Always heal at or below this health"},
			&cli.FloatFlag{Name: "aggression", Value: 0.6, Usage: "Chance of attacking when healthy (0-1)"},
			&cli.IntFlag{Name: "seed", Usage: "Random seed (0 = time based)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Debug logging"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("verbose") {
		level = "debug"
	}
	logger, syncLogs, err := logging.New(appconfig.LogConfig{Level: level, Format: "console"})
	if err != nil {
		return err
	}
	defer syncLogs()

	n := int(cmd.Int("bots"))
	if n < 1 {
		return fmt.Errorf("--bots must be at least 1, got %d", n)
	}
	aggression := cmd.Float("aggression")
	if aggression < 0 || aggression > 1 {
		return fmt.Errorf("--aggression must be between 0 and 1, got %v", aggression)
	}

	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	seed := int64(cmd.Int("seed"))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	results := runBots(ctx, botOptions{
		url:        cmd.String("url"),
		count:      n,
		interval:   cmd.Duration("interval"),
		healBelow:  int(cmd.Int("heal-below")),
		aggression: aggression,
		seed:       seed,
	}, logger)

	report(logger, results)
	if len(results) == 0 {
		return fmt.Errorf("no bot could connect to %s", cmd.String("url"))
	}
	return nil
}

type botOptions struct {
	url        string
	count      int
	interval   time.Duration
	healBelow  int
	aggression float64
	seed       int64
}

// runBots connects every bot, plays until ctx ends, and returns the stats of
// the bots that managed to connect.
func runBots(ctx context.Context, opts botOptions, logger *zap.Logger) []Stats {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []Stats
	)

	for i := 0; i < opts.count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			b, err := Dial(ctx, opts.url, logger)
			if err != nil {
				logger.Warn("bot failed to connect", zap.Int("bot", i), zap.Error(err))
				return
			}
			logger.Debug("bot connected", zap.Uint64("player_id", uint64(b.ID())))

			rng := rand.New(rand.NewSource(opts.seed + int64(i)))
			stats := b.Run(ctx, NewStrategy(b.ID(), opts.healBelow, opts.aggression, rng), opts.interval)

			mu.Lock()
			results = append(results, stats)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	return results
}

func report(logger *zap.Logger, results []Stats) {
	var sent, updates, died int
	for _, s := range results {
		sent += s.ActionsSent
		updates += s.Updates
		if s.Died {
			died++
		}
		logger.Debug("bot finished",
			zap.Uint64("player_id", uint64(s.ID)),
			zap.Int("actions", s.ActionsSent),
			zap.Int("updates", s.Updates),
			zap.Bool("died", s.Died),
			zap.Int("health", s.LastHealth),
		)
	}
	logger.Info("run complete",
		zap.Int("bots", len(results)),
		zap.Int("survivors", len(results)-died),
		zap.Int("actions_sent", sent),
		zap.Int("updates_received", updates),
	)
}
