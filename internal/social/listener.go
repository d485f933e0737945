package social

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mattn/go-mastodon"

	"github.com/robermar23/mastodon-bot/internal/respond"
)

// Handler receives one job per inbound status worth responding to.
type Handler func(ctx context.Context, job respond.Job) error

// Listener consumes the user streaming API and dispatches jobs. A failure
// handling one event is logged and never takes the stream down.
type Listener struct {
	client  *Client
	handler Handler
	logger  *slog.Logger
}

func NewListener(client *Client, handler Handler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{client: client, handler: handler, logger: logger}
}

// Listen blocks on the user stream until ctx is cancelled or the stream
// cannot be established.
func (l *Listener) Listen(ctx context.Context) error {
	events, err := l.client.api.StreamingUser(ctx)
	if err != nil {
		return fmt.Errorf("open user stream: %w", err)
	}
	l.logger.Info("listening for events", "account_id", l.client.AccountID())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return fmt.Errorf("user stream closed")
			}
			l.dispatch(ctx, event)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, event mastodon.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic handling stream event", "panic", r)
		}
	}()

	// go-mastodon never surfaces a distinct conversation event; direct
	// message mentions arrive as NotificationEvent like any other.
	switch e := event.(type) {
	case *mastodon.UpdateEvent:
		l.handleStatus(ctx, e.Status)
	case *mastodon.NotificationEvent:
		if e.Notification.Type == "mention" && e.Notification.Status != nil {
			l.handleStatus(ctx, e.Notification.Status)
		}
	case *mastodon.ErrorEvent:
		// The library reconnects on its own; surface the error and move on.
		l.logger.Warn("stream error", "error", e.Error())
	}
}

func (l *Listener) handleStatus(ctx context.Context, status *mastodon.Status) {
	post := l.client.toPost(status)
	if post.FromBot {
		l.logger.Debug("skipping own status", "status_id", post.ID)
		return
	}

	job := respond.Job{
		Content:     post.Content,
		InReplyToID: post.InReplyToID,
		ImageURL:    post.AttachmentURL,
		StatusID:    post.ID,
	}
	l.logger.Info("handling status", "status_id", job.StatusID, "in_reply_to", job.InReplyToID)

	if err := l.handler(ctx, job); err != nil {
		l.logger.Error("handle status", "status_id", job.StatusID, "error", err)
	}
}
