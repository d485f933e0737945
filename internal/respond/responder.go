// Package respond implements the response orchestration pipeline: given
// an inbound post it selects a generation strategy, maintains bounded
// conversation context, optionally archives the result, splits it into
// platform-sized chunks and posts them back in order.
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robermar23/mastodon-bot/internal/archive"
	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/contextstore"
	"github.com/robermar23/mastodon-bot/internal/htmltext"
	"github.com/robermar23/mastodon-bot/internal/textutil"
	"github.com/robermar23/mastodon-bot/internal/tokens"
)

// placeholderReply is posted when a recoverable provider failure leaves
// nothing better to say. Distinct from any generated response on purpose.
const placeholderReply = "beep bop, bop beep"

// Job is an immutable snapshot of everything needed to compute and post
// one reply. It is built per inbound event and executed either inline or
// by a queue worker.
type Job struct {
	Content     string `json:"content"`
	InReplyToID string `json:"in_reply_to_id"`
	ImageURL    string `json:"image_url"`
	StatusID    string `json:"status_id"`
}

// media is a generated artifact to attach to the reply.
type media struct {
	data     []byte
	filename string
}

// Options are the pipeline's tunables, resolved once at startup.
type Options struct {
	Mode            config.ResponseType
	Persona         string
	ChatMaxTokens   int
	MaxStatusChars  int
	PostDelay       time.Duration
	MaxResolveDepth int
	SpeechVoice     string
}

// Deps are the pipeline's collaborators. Social is required; the rest may
// be nil when the configured mode does not use them.
type Deps struct {
	Social      SocialClient
	Chat        ChatProvider
	Image       ImageProvider
	Transcriber TranscriptionProvider
	Speech      SpeechProvider
	Store       contextstore.Store
	Estimator   *tokens.Estimator
	Archive     *archive.Publisher
	Objects     ObjectStore
	Fetcher     *htmltext.Fetcher
	SpeechQueue SpeechStatusEnqueuer
	Logger      *slog.Logger
}

// Responder executes response jobs.
type Responder struct {
	opts   Options
	deps   Deps
	logger *slog.Logger

	// sleep is swappable so tests do not wait out inter-post delays.
	sleep func(time.Duration)
}

// New creates a Responder.
func New(opts Options, deps Deps) *Responder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxResolveDepth <= 0 {
		opts.MaxResolveDepth = 50
	}
	return &Responder{opts: opts, deps: deps, logger: logger, sleep: time.Sleep}
}

// Respond computes and posts the reply for job. The returned text is the
// full response before chunking. Provider errors propagate classified;
// the caller applies the retry or placeholder policy.
func (r *Responder) Respond(ctx context.Context, job Job) (string, error) {
	filtered := job.Content
	for _, mention := range textutil.FilterWords(job.Content, "@") {
		filtered = textutil.RemoveWord(filtered, mention)
	}

	r.logger.Debug("responding",
		"mode", string(r.opts.Mode),
		"status_id", job.StatusID,
		"in_reply_to_id", job.InReplyToID,
	)

	text, attachments, err := r.generate(ctx, job, filtered)
	if err != nil {
		return "", err
	}
	if text == "" {
		text = placeholderReply
	}

	text = r.maybeArchive(ctx, job, text)

	mediaIDs, text := r.uploadAttachments(ctx, job, attachments, text)

	if err := r.postChunks(ctx, job, text, mediaIDs); err != nil {
		return "", err
	}
	return text, nil
}

// generate dispatches to the configured response mode. Stateless: one
// terminal choice per inbound event.
func (r *Responder) generate(ctx context.Context, job Job, filtered string) (string, []media, error) {
	switch r.opts.Mode {
	case config.ResponseReverseString:
		return textutil.Reverse(filtered), nil, nil
	case config.ResponseChat:
		text, err := r.generateChat(ctx, job, filtered)
		return text, nil, err
	case config.ResponseImage:
		return r.generateImage(ctx, job, filtered)
	case config.ResponseTranscribe:
		text, err := r.generateTranscript(ctx, job, filtered)
		return text, nil, err
	case config.ResponseTextToSpeech:
		return r.generateSpeech(ctx, job, filtered)
	default:
		return "", nil, Permanent(fmt.Errorf("unknown response type %q", r.opts.Mode))
	}
}

// maybeArchive publishes an unroll page for long or code-bearing
// responses and appends its link. Archive failure degrades to posting
// without the link, never blocking the reply.
func (r *Responder) maybeArchive(ctx context.Context, job Job, text string) string {
	if r.deps.Archive == nil || !archive.ShouldArchive(text) {
		return text
	}

	url, err := r.deps.Archive.Publish(ctx, "Unrolled reply", text, job.StatusID, job.InReplyToID)
	if err != nil {
		r.logger.Warn("archive publish failed, posting without link", "error", err)
		return text
	}
	return text + "\n\nFull response: " + url
}

// uploadAttachments uploads generated media, falling back to an object
// storage link when the platform rejects an oversized payload.
func (r *Responder) uploadAttachments(ctx context.Context, job Job, attachments []media, text string) ([]string, string) {
	var mediaIDs []string
	for _, m := range attachments {
		id, err := r.deps.Social.UploadMedia(ctx, m.data, m.filename)
		if err == nil {
			mediaIDs = append(mediaIDs, id)
			continue
		}
		if IsOversized(err) && r.deps.Objects != nil {
			url, putErr := r.deps.Objects.Put(ctx, m.filename, m.data, contentTypeFor(m.filename))
			if putErr == nil {
				r.logger.Info("attachment too large for platform, stored externally", "url", url)
				text += "\n\nAttachment stored at: " + url
				continue
			}
			r.logger.Warn("oversized attachment fallback failed", "error", putErr)
			continue
		}
		r.logger.Warn("media upload failed, replying without attachment", "filename", m.filename, "error", err)
	}
	return mediaIDs, text
}

// postChunks splits text and posts each chunk strictly in sequence, the
// first as a reply to the inbound post and each subsequent chunk as a
// reply to the previous one, waiting briefly between posts to respect
// platform rate limits.
func (r *Responder) postChunks(ctx context.Context, job Job, text string, mediaIDs []string) error {
	inReplyTo := job.StatusID
	if inReplyTo == "" {
		inReplyTo = job.InReplyToID
	}

	chunks := textutil.SplitByWords(text, r.opts.MaxStatusChars)
	for i, chunk := range chunks {
		ids := mediaIDs
		if i > 0 {
			ids = nil // attachments ride on the first chunk only
		}

		posted, err := r.deps.Social.PostReply(ctx, chunk, inReplyTo, ids)
		if err != nil {
			return fmt.Errorf("post chunk %d/%d: %w", i+1, len(chunks), err)
		}
		r.logger.Debug("posted chunk", "part", i+1, "of", len(chunks), "url", posted.URL)

		inReplyTo = posted.ID
		if i < len(chunks)-1 {
			r.sleep(r.opts.PostDelay)
		}
	}
	return nil
}

// PostPlaceholder posts the neutral failure acknowledgement, used when a
// recoverable provider error leaves the inline listener with no response.
func (r *Responder) PostPlaceholder(ctx context.Context, job Job) error {
	inReplyTo := job.StatusID
	if inReplyTo == "" {
		inReplyTo = job.InReplyToID
	}
	_, err := r.deps.Social.PostReply(ctx, placeholderReply, inReplyTo, nil)
	return err
}

func contentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".png"):
		return "image/png"
	case strings.HasSuffix(filename, ".mp3"):
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
