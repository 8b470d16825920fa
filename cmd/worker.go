package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/collector"
	"github.com/partybase-ng/directory-cli/internal/export"
	"github.com/partybase-ng/directory-cli/internal/notify"
	"github.com/partybase-ng/directory-cli/internal/pipeline"
	"github.com/partybase-ng/directory-cli/internal/queue"
)

var workerNoSchedule bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the queue worker and cron scheduler",
	Long:  "Drains the refresh job queue and enqueues the recurring month-start and mid-month slots. Runs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		registry := collector.DefaultRegistry(cfg.Collect)
		exporter := export.New(st, cfg.Export)
		notifier := notify.New(cfg.Notify)
		coord := pipeline.New(cfg, st, registry, exporter, notifier)

		if !workerNoSchedule {
			sched := queue.NewScheduler(cfg.Schedule, cfg.Queue, st)
			if err := sched.Start(); err != nil {
				return eris.Wrap(err, "start scheduler")
			}
			defer sched.Stop()
		}

		zap.L().Info("worker started",
			zap.Int("workers", cfg.Queue.Workers),
			zap.Int("poll_secs", cfg.Queue.PollSecs),
			zap.Bool("scheduler", !workerNoSchedule),
		)

		w := queue.NewWorker(cfg.Queue, st, coord)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return eris.Wrap(err, "worker run")
		}

		zap.L().Info("worker stopped")
		return nil
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerNoSchedule, "no-schedule", false, "disable the cron scheduler, only drain the queue")
	rootCmd.AddCommand(workerCmd)
}
