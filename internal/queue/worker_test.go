package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robermar23/mastodon-bot/internal/respond"
)

func TestRespondTaskPayloadRoundTrip(t *testing.T) {
	job := respond.Job{
		Content:     "hello",
		InReplyToID: "1",
		ImageURL:    "https://files.example/a.png",
		StatusID:    "2",
	}

	payload, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded respond.Job
	require.NoError(t, json.Unmarshal(asynq.NewTask(TypeRespond, payload).Payload(), &decoded))
	assert.Equal(t, job, decoded)
}

func TestHandleRespondRejectsMalformedPayload(t *testing.T) {
	w := &Worker{logger: slog.Default()}

	err := w.handleRespond(context.Background(), asynq.NewTask(TypeRespond, []byte("not json")))
	require.Error(t, err)
	// Malformed payloads can never succeed, so they must skip the retry
	// schedule instead of burning attempts.
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestClassifyKeepsPermanentFailuresOffRetry(t *testing.T) {
	w := &Worker{logger: slog.Default()}

	err := w.classify(respond.Permanent(errors.New("bad request")), "respond", "1")
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = w.classify(respond.Transient(errors.New("rate limited")), "respond", "1")
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	err = w.classify(errors.New("connection reset"), "respond", "1")
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
