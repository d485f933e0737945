package respond

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/robermar23/mastodon-bot/internal/contextstore"
	"github.com/robermar23/mastodon-bot/internal/htmltext"
	"github.com/robermar23/mastodon-bot/internal/textutil"
)

// generateChat runs a context-bounded chat completion. The conversation
// root resolved from the reply chain keys the stored history; both the
// user turn and the assistant turn are appended before returning.
func (r *Responder) generateChat(ctx context.Context, job Job, prompt string) (string, error) {
	conversationID := r.ResolveRoot(ctx, job)

	messages, err := r.deps.Store.Get(ctx, conversationID)
	if err != nil {
		r.logger.Warn("context load failed, starting fresh", "conversation_id", conversationID, "error", err)
		messages = nil
	}
	if len(messages) == 0 && r.opts.Persona != "" {
		messages = []contextstore.Message{{Role: "system", Content: r.opts.Persona}}
	}

	messages = append(messages, contextstore.Message{Role: "user", Content: prompt})
	messages = r.deps.Estimator.Reduce(messages, r.opts.ChatMaxTokens)

	reply, err := r.deps.Chat.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	messages = append(messages, contextstore.Message{Role: "assistant", Content: reply})
	if err := r.deps.Store.Set(ctx, conversationID, messages); err != nil {
		r.logger.Warn("context save failed, turn will be forgotten", "conversation_id", conversationID, "error", err)
	}

	return reply, nil
}

// generateImage creates an image from the prompt, or a variation of the
// attached image when the filtered text is exactly "variation".
func (r *Responder) generateImage(ctx context.Context, job Job, prompt string) (string, []media, error) {
	trimmed := strings.TrimSpace(prompt)

	if job.ImageURL != "" && trimmed == "variation" {
		source, err := r.deps.Fetcher.Download(ctx, job.ImageURL)
		if err != nil {
			return "", nil, Transient(fmt.Errorf("download attached image: %w", err))
		}
		varied, err := r.deps.Image.Vary(ctx, source)
		if err != nil {
			return "", nil, err
		}
		return "Here is a variation of your image", []media{{data: varied, filename: job.StatusID + "-variation.png"}}, nil
	}

	if job.ImageURL != "" && trimmed == "edit" {
		return "Image editing is not implemented", nil, nil
	}

	generated, err := r.deps.Image.Generate(ctx, trimmed)
	if err != nil {
		return "", nil, err
	}
	return "Here is what I came up with for: " + trimmed, []media{{data: generated, filename: job.StatusID + ".png"}}, nil
}

// generateTranscript transcribes the attached media, or failing an
// attachment, every URL found in the post text. A single URL's failure is
// reported inline instead of aborting the batch.
func (r *Responder) generateTranscript(ctx context.Context, job Job, text string) (string, error) {
	if job.ImageURL != "" {
		audio, err := r.deps.Fetcher.Download(ctx, job.ImageURL)
		if err != nil {
			return "", Transient(fmt.Errorf("download attachment: %w", err))
		}
		return r.deps.Transcriber.Transcribe(ctx, path.Base(job.ImageURL), audio)
	}

	urls := textutil.ExtractURLs(text)
	if len(urls) == 0 {
		return "Nothing to transcribe: no attachment or URL found", nil
	}

	var parts []string
	for _, url := range urls {
		transcript, err := r.transcribeURL(ctx, url)
		if err != nil {
			r.logger.Warn("transcription failed", "url", url, "error", err)
			parts = append(parts, fmt.Sprintf("%s: transcription failed (%v)", url, err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:\n%s", url, transcript))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (r *Responder) transcribeURL(ctx context.Context, url string) (string, error) {
	audio, err := r.deps.Fetcher.Download(ctx, url)
	if err != nil {
		return "", err
	}
	return r.deps.Transcriber.Transcribe(ctx, path.Base(url), audio)
}

// generateSpeech synthesizes speech for the readable text behind each URL
// in the post, or for the post content itself when no URL is present.
// Text over the synchronous limit becomes a provider-side job whose
// completion a queued status check polls for.
func (r *Responder) generateSpeech(ctx context.Context, job Job, text string) (string, []media, error) {
	speechText, err := r.speechInput(ctx, text)
	if err != nil {
		return "", nil, err
	}

	audio, err := r.deps.Speech.Synthesize(ctx, speechText, r.opts.SpeechVoice)
	if err == nil {
		return "Audio attached", []media{{data: audio, filename: job.StatusID + ".mp3"}}, nil
	}
	if err != ErrSpeechTooLong {
		return "", nil, err
	}

	taskID, err := r.deps.Speech.StartSynthesisTask(ctx, speechText, r.opts.SpeechVoice)
	if err != nil {
		return "", nil, err
	}

	inReplyTo := job.StatusID
	if inReplyTo == "" {
		inReplyTo = job.InReplyToID
	}
	if r.deps.SpeechQueue == nil {
		return "", nil, Permanent(fmt.Errorf("synthesis task %s started but no queue is configured to poll it", taskID))
	}
	if err := r.deps.SpeechQueue.EnqueueSpeechStatus(ctx, inReplyTo, taskID); err != nil {
		return "", nil, fmt.Errorf("enqueue speech status check: %w", err)
	}

	r.logger.Info("speech synthesis running asynchronously", "task_id", taskID)
	return "That was a lot of text! Your audio is being prepared and will follow shortly", nil, nil
}

func (r *Responder) speechInput(ctx context.Context, text string) (string, error) {
	urls := textutil.ExtractURLs(text)
	if len(urls) == 0 {
		return text, nil
	}

	var parts []string
	for _, url := range urls {
		readable, err := r.deps.Fetcher.ReadableText(ctx, url)
		if err != nil {
			return "", classifyFetch(fmt.Errorf("prepare %s for speech: %w", url, err))
		}
		parts = append(parts, readable)
	}
	return strings.Join(parts, "\n\n"), nil
}

// classifyFetch maps a fetch failure onto retry semantics: an unsupported
// media type or a client-error status can never succeed, while network
// failures and server errors are worth retrying.
func classifyFetch(err error) error {
	var unsupported *htmltext.ErrUnsupportedContentType
	if errors.As(err, &unsupported) {
		return Permanent(err)
	}
	var status *htmltext.StatusError
	if errors.As(err, &status) && status.Code >= 400 && status.Code < 500 {
		return Permanent(err)
	}
	return Transient(err)
}
