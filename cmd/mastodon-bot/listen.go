package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robermar23/mastodon-bot/internal/respond"
	"github.com/robermar23/mastodon-bot/internal/social"
)

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Listen to the account's stream and respond to inbound statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			logger := slog.Default()

			handler := inlineHandler(app, logger)
			if app.cfg.QueueEnabled() {
				logger.Info("queueing inbound statuses", "queue", app.cfg.QueueName)
				handler = func(ctx context.Context, job respond.Job) error {
					return app.queue.EnqueueRespond(ctx, job)
				}
			}

			listener := social.NewListener(app.social, handler, logger)
			err = listener.Listen(ctx)
			if ctx.Err() != nil {
				logger.Info("listener stopped")
				return nil
			}
			return err
		},
	}
}

// inlineHandler runs the pipeline in the listener process. A retryable
// failure cannot actually be retried here, so the bot acknowledges the
// mention with a placeholder instead of staying silent.
func inlineHandler(app *app, logger *slog.Logger) social.Handler {
	return func(ctx context.Context, job respond.Job) error {
		_, err := app.responder.Respond(ctx, job)
		if err != nil && respond.IsTransient(err) {
			logger.Warn("transient failure without a queue, posting placeholder",
				"status_id", job.StatusID, "error", err)
			return app.responder.PostPlaceholder(ctx, job)
		}
		return err
	}
}
