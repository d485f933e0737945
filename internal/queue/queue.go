// Package queue provides durable background processing over Redis. The
// listener enqueues one task per inbound status; workers run the response
// pipeline with bounded retries, so transient provider failures do not
// drop responses.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/respond"
)

const (
	// TypeRespond runs the full response pipeline for one inbound status.
	TypeRespond = "respond"
	// TypeSpeechStatus checks whether an asynchronous speech synthesis
	// task has produced its artifact yet. It fails while the artifact is
	// absent, so the queue's retry schedule doubles as the polling loop.
	TypeSpeechStatus = "speech:status"
)

// speechStatusPayload carries the poll job's parameters.
type speechStatusPayload struct {
	InReplyToID string `json:"in_reply_to_id"`
	TaskID      string `json:"task_id"`
}

// Client enqueues pipeline work. It implements respond.SpeechStatusEnqueuer.
type Client struct {
	client *asynq.Client
	cfg    *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	return &Client{client: asynq.NewClient(opt), cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRespond schedules the response pipeline for one status.
func (c *Client) EnqueueRespond(ctx context.Context, job respond.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal respond task: %w", err)
	}
	task := asynq.NewTask(TypeRespond, payload)
	if _, err := c.client.EnqueueContext(ctx, task, c.options()...); err != nil {
		return fmt.Errorf("enqueue respond task: %w", err)
	}
	return nil
}

// EnqueueSpeechStatus schedules the artifact poll for a synthesis task.
func (c *Client) EnqueueSpeechStatus(ctx context.Context, inReplyToID, taskID string) error {
	payload, err := json.Marshal(speechStatusPayload{InReplyToID: inReplyToID, TaskID: taskID})
	if err != nil {
		return fmt.Errorf("marshal speech status task: %w", err)
	}
	task := asynq.NewTask(TypeSpeechStatus, payload)
	if _, err := c.client.EnqueueContext(ctx, task, c.options()...); err != nil {
		return fmt.Errorf("enqueue speech status task: %w", err)
	}
	return nil
}

func (c *Client) options() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(c.cfg.QueueName),
		asynq.MaxRetry(c.cfg.QueueRetryAttempts),
		asynq.Timeout(c.cfg.QueueTaskTimeout),
	}
}
