// mochi runs the pet: a face server for phone displays driven by the
// decision engine, with optional AI speech, a host battery source and a
// Discord presence.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moorebrett0/mochi/internal/brain"
	"github.com/moorebrett0/mochi/internal/config"
	"github.com/moorebrett0/mochi/internal/discord"
	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/loop"
	"github.com/moorebrett0/mochi/internal/monitor"
	"github.com/moorebrett0/mochi/internal/persona"
	"github.com/moorebrett0/mochi/internal/proactive"
	"github.com/moorebrett0/mochi/internal/render"
	"github.com/moorebrett0/mochi/internal/server"
)

var version = "dev"

type options struct {
	configPath string
	logLevel   string
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "mochi",
		Short: "Sensor-driven virtual pet face",
		Long: `mochi serves an animated pet face to phone displays over a websocket.
The phone streams tilt, motion, location, battery and touch back, and the
pet reacts: it glances into turns, flinches at hard braking, gets bored
at a standstill and dozes off when nobody plays with it.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "mochi.yaml", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: error|warn|info|debug (overrides config)")
	cmd.AddCommand(newInitCommand(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

func setupLogger(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := setupLogger(level)
	slog.SetDefault(logger)

	p := persona.Get(cfg.Persona)
	logger.Info("mochi: starting", "version", version, "persona", p.ID, "listen", cfg.Server.Listen)

	// Everything that touches the engine runs on this loop.
	l := loop.New(cfg.Server.LoopBuffer)
	stage := render.NewStage(l, logger)
	eng := engine.New(cfg.Engine, l, stage, engine.WithLogger(logger))

	srv := server.New(logger, l, eng, server.Config{
		Hub:     server.HubConfig{SendBuf: cfg.Server.SendBuffer, BroadcastBuf: cfg.Server.BroadcastBuf},
		Persona: p.ID,
	})
	stage.AddSink(srv)

	state := func(ctx context.Context) (engine.Snapshot, error) {
		var snap engine.Snapshot
		err := l.Do(ctx, func() { snap = eng.Snapshot() })
		return snap, err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Sinks are added before the loop starts; after that the stage is
	// only touched from the loop.
	if cfg.AI.Speech.Enabled {
		speaker := newSpeaker(gctx, cfg.AI, p, eng, srv)
		stage.AddSink(speaker)
		g.Go(func() error { return speaker.Run(gctx) })
	}

	l.Post(eng.Start)
	g.Go(func() error {
		return l.Run(gctx, func(now time.Time) time.Duration {
			eng.Tick(now)
			return eng.TickInterval()
		})
	})

	g.Go(func() error { return srv.Run(gctx, cfg.Server.Listen) })

	if cfg.Battery.Enabled {
		mon := monitor.New(cfg.Battery.Root, cfg.Battery.Interval, func(b monitor.Battery) {
			l.Post(func() { eng.OnBattery(b.Level, b.Charging) })
		})
		g.Go(func() error { return mon.Run(gctx) })
	}

	if cfg.Discord.Enabled() {
		bot, err := discord.NewBot(cfg.Discord.BotToken, cfg.Discord.ChannelID, cfg.Discord.OwnerIDs, p)
		if err != nil {
			logger.Error("mochi: discord disabled", "err", err)
		} else {
			discord.NewRouter(bot, l, eng)
			g.Go(func() error {
				if err := bot.Run(gctx); err != nil {
					logger.Error("mochi: discord disabled", "err", err)
				}
				return nil
			})

			if cfg.Proactive.Enabled {
				sched := proactive.New(bot, state, p, proactive.Config{
					CheckInterval:    cfg.Proactive.CheckInterval,
					MorningHour:      cfg.Proactive.MorningHour,
					BoredomAfter:     time.Duration(cfg.Proactive.BoredomMinutes) * time.Minute,
					DistressCooldown: cfg.Proactive.DistressCooldown,
					NapCooldown:      cfg.Proactive.NapCooldown,
				})
				g.Go(func() error { return sched.Run(gctx) })
			}
		}
	} else {
		logger.Info("mochi: no DISCORD_BOT_TOKEN, discord disabled")
	}

	err = g.Wait()
	logger.Info("mochi: stopped")
	return err
}

// newSpeaker builds the speech bubble source. Without an API key it
// still speaks the persona's canned lines.
func newSpeaker(ctx context.Context, ai config.AIConfig, p *persona.Persona, eng *engine.Engine, srv *server.Server) *brain.Speaker {
	b := brain.New(ctx, brain.Config{
		ClaudeAPIKey:  ai.Claude.APIKey,
		ClaudeModel:   ai.Claude.Model,
		GeminiAPIKey:  ai.Gemini.APIKey,
		GeminiModel:   ai.Gemini.Model,
		OpenAIAPIKey:  ai.OpenAI.APIKey,
		OpenAIModel:   ai.OpenAI.Model,
		OpenAIBaseURL: ai.OpenAI.BaseURL,
		Provider:      ai.Provider,
		MaxTokens:     ai.Speech.MaxTokens,
		RateLimit:     ai.Speech.RateLimit,
		RateWindow:    ai.Speech.RateWindow,
		Memory:        ai.Speech.Memory,
	}, p)

	cfg := brain.SpeakerConfig{Cooldown: ai.Speech.Cooldown, Timeout: ai.Speech.Timeout}
	// Show runs on the loop, so the engine may be read directly.
	return brain.NewSpeaker(b, p, cfg, eng.Snapshot, func(sp brain.Speech) {
		srv.Publish("speech", sp.At, sp)
	})
}
