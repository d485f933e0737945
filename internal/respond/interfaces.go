package respond

import (
	"context"

	"github.com/robermar23/mastodon-bot/internal/contextstore"
)

// Post is the pipeline's view of a status on the social platform.
type Post struct {
	ID            string
	InReplyToID   string
	Content       string
	URL           string
	AttachmentURL string
	FromBot       bool
}

// SocialClient is the posting platform boundary. The one concrete
// implementation is the Mastodon binding; tests use fakes.
type SocialClient interface {
	// GetPost fetches a status by id.
	GetPost(ctx context.Context, id string) (*Post, error)

	// PostReply posts text as a reply to inReplyToID with optional
	// previously uploaded media. Returns the created post.
	PostReply(ctx context.Context, text, inReplyToID string, mediaIDs []string) (*Post, error)

	// UploadMedia uploads raw media bytes, returning the platform media id.
	// An oversized rejection is reported via an Oversized ProviderError.
	UploadMedia(ctx context.Context, data []byte, filename string) (string, error)
}

// ChatProvider produces an assistant completion for a conversation.
type ChatProvider interface {
	Complete(ctx context.Context, messages []contextstore.Message) (string, error)
}

// ImageProvider generates images from prompts or varies existing ones.
type ImageProvider interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Vary(ctx context.Context, image []byte) ([]byte, error)
}

// TranscriptionProvider converts audio to text.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// SpeechProvider synthesizes speech. Synthesize returns ErrSpeechTooLong
// when the text exceeds the synchronous limit; StartSynthesisTask then
// runs the synthesis as a provider-side job writing to object storage.
type SpeechProvider interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	StartSynthesisTask(ctx context.Context, text, voice string) (taskID string, err error)
}

// ObjectStore is cloud object storage with public URLs. Writes are
// idempotent by key, so queue retries may repeat them safely.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

// SpeechStatusEnqueuer schedules a poll-via-retry job that checks whether
// an asynchronous synthesis artifact has landed in object storage.
type SpeechStatusEnqueuer interface {
	EnqueueSpeechStatus(ctx context.Context, inReplyToID, taskID string) error
}
