package main

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bingoyes/diarysync/internal/sync"
)

var (
	flagWatch    bool
	flagInterval int
)

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Sync continuously on an interval",
		Long: "Runs sync passes on a fixed interval until interrupted. With --watch, " +
			"also triggers a pass shortly after local files change.",
		RunE: runDaemon,
	}

	cmd.Flags().BoolVar(&flagWatch, "watch", false, "also sync on local file changes")
	cmd.Flags().IntVar(&flagInterval, "interval", 0, "minutes between passes (default from config)")

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := buildSession(ctx, terminalObserver{})
	if err != nil {
		return err
	}

	interval := resolvedCfg.Sync.IntervalMinutes
	if flagInterval > 0 {
		interval = flagInterval
	}

	watch := flagWatch || resolvedCfg.Sync.Watch

	sess.logger.Info("daemon starting",
		slog.Int("interval_minutes", interval),
		slog.Bool("watch", watch),
	)

	runOnce := func() {
		if _, err := sess.engine.Sync(ctx); err != nil {
			sess.logger.Error("sync pass failed", slog.String("error", err.Error()))
		}
	}

	if watch {
		watcher, err := sync.NewWatcher(resolvedCfg.Diary.Dir, runOnce, sess.logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		go watcher.Run(ctx)
	}

	// First pass immediately, then on the interval.
	runOnce()

	ticker := time.NewTicker(time.Duration(interval) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sess.logger.Info("daemon stopping")
			return nil
		case <-ticker.C:
			runOnce()
		}
	}
}
