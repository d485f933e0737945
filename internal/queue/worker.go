package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/respond"
)

// Worker consumes pipeline tasks from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	responder *respond.Responder
	logger    *slog.Logger
}

func NewWorker(cfg *config.Config, responder *respond.Responder, logger *slog.Logger) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{cfg.QueueName: 1},
		// Fixed interval between attempts rather than exponential backoff:
		// for speech status tasks the retry schedule is the polling period.
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return cfg.QueueRetryDelay
		},
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), responder: responder, logger: logger}
	w.mux.HandleFunc(TypeRespond, w.handleRespond)
	w.mux.HandleFunc(TypeSpeechStatus, w.handleSpeechStatus)
	return w, nil
}

// Run blocks processing tasks until Shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleRespond(ctx context.Context, task *asynq.Task) error {
	var job respond.Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("unmarshal respond task: %v: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("processing respond task", "status_id", job.StatusID)
	if _, err := w.responder.Respond(ctx, job); err != nil {
		return w.classify(err, "respond", job.StatusID)
	}
	return nil
}

func (w *Worker) handleSpeechStatus(ctx context.Context, task *asynq.Task) error {
	var payload speechStatusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal speech status task: %v: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("checking speech synthesis task", "task_id", payload.TaskID)
	if err := w.responder.CheckSpeechTask(ctx, payload.InReplyToID, payload.TaskID); err != nil {
		// Not ready yet; the retry schedule polls again.
		return err
	}
	return nil
}

// classify keeps permanent pipeline failures off the retry schedule.
// Anything not explicitly permanent retries: unclassified errors are
// mostly network-shaped.
func (w *Worker) classify(err error, kind, statusID string) error {
	if respond.IsPermanent(err) {
		w.logger.Error("permanent failure, dropping task", "task", kind, "status_id", statusID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	w.logger.Warn("failure, will retry", "task", kind, "status_id", statusID, "error", err)
	return err
}
