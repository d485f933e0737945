package main

import (
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robermar23/mastodon-bot/internal/queue"
)

func newWorkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Process queued response tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			if !app.cfg.QueueEnabled() {
				return errors.New("MASTODON_BOT_REDIS_URL must be set to run a worker")
			}

			worker, err := queue.NewWorker(app.cfg, app.responder, slog.Default())
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				slog.Info("shutting down worker")
				worker.Shutdown()
			}()

			return worker.Run()
		},
	}
}
