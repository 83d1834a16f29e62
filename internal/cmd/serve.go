package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attunelabs/attune/internal/breakthrough"
	"github.com/attunelabs/attune/internal/config"
	"github.com/attunelabs/attune/internal/engine"
	"github.com/attunelabs/attune/internal/event"
	"github.com/attunelabs/attune/internal/journal"
	"github.com/attunelabs/attune/internal/logging"
	"github.com/attunelabs/attune/internal/metrics"
	"github.com/attunelabs/attune/internal/session"
	"github.com/attunelabs/attune/internal/strategy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the adaptive session engine",
	Long: `Run the adaptive session engine until interrupted.

The engine consumes signal updates published on the event bus, maintains
one worker per active session, and emits adaptation and breakthrough
events. Strategy override files are re-loaded live when the config file
changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewLogger(cfg.Logging.File, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	table, err := loadTable(cfg)
	if err != nil {
		return fmt.Errorf("load strategy tables: %w", err)
	}

	bus := event.NewBus()
	store := session.NewStore()
	detector := breakthrough.New(
		breakthrough.WithTriggerLevel(cfg.Breakthrough.TriggerLevel),
		breakthrough.WithCooldown(cfg.Breakthrough.Cooldown()),
	)

	eng := engine.New(store, bus, table, detector, log,
		engine.WithTickInterval(cfg.Engine.TickInterval()),
		engine.WithTickTimeout(cfg.Engine.TickTimeout()),
		engine.WithBackoffCap(cfg.Engine.BackoffCap()),
		engine.WithIdleTimeout(cfg.Engine.IdleTimeout()),
		engine.WithMailboxSize(cfg.Engine.MailboxSize),
	)

	var agg *metrics.Aggregator
	if cfg.Metrics.Enabled {
		agg = metrics.NewAggregator()
		agg.Start(bus)
		defer agg.Stop()
	}

	if cfg.Journal.Enabled {
		rec := journal.NewRecorder(journal.NewStore(cfg.Journal.ResolveDir()), log)
		rec.Start(bus)
		defer rec.Stop()
		log.Info("journal enabled", "dir", cfg.Journal.ResolveDir())
	}

	// Re-load strategy overrides when the config file changes on disk.
	config.Watch(func(next *config.Config) {
		table, err := loadTable(next)
		if err != nil {
			log.Warn("strategy reload failed, keeping current tables", "error", err)
			return
		}
		eng.SwapTable(table)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("engine serving",
		"tick_interval", cfg.Engine.TickInterval(),
		"idle_timeout", cfg.Engine.IdleTimeout(),
		"trigger_level", cfg.Breakthrough.TriggerLevel)

	if agg != nil && cfg.Metrics.LogInterval() > 0 {
		go logMetrics(ctx.Done(), agg, log, cfg.Metrics.LogInterval())
	}

	<-ctx.Done()

	log.Info("shutting down", "active_sessions", store.ActiveCount())
	return eng.Close()
}

// loadTable builds the strategy tables, applying the override file when one
// is configured.
func loadTable(cfg *config.Config) (*strategy.Table, error) {
	if cfg.Strategy.File == "" {
		return strategy.NewTable(), nil
	}
	return strategy.LoadFile(cfg.Strategy.File)
}

// logMetrics writes a periodic summary line until done is closed.
func logMetrics(done <-chan struct{}, agg *metrics.Aggregator, log *logging.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := agg.Snapshot()
			log.Info("metrics",
				"active_sessions", snap.ActiveSessions,
				"total_sessions", snap.TotalSessions,
				"total_adaptations", snap.TotalAdaptations,
				"breakthroughs", snap.BreakthroughEvents,
				"adaptations_per_minute", snap.AdaptationsPerMinute,
				"avg_adaptation_rate", snap.AvgAdaptationRate,
				"avg_effectiveness", snap.AvgEffectiveness)
		}
	}
}
