// Package openai binds the response pipeline's provider interfaces to the
// OpenAI API: chat completions, image generation and variation, and audio
// transcription.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/robermar23/mastodon-bot/internal/contextstore"
	"github.com/robermar23/mastodon-bot/internal/respond"
)

// classify maps an OpenAI API failure onto the pipeline's retry semantics:
// rate limits, server errors and network failures are worth retrying,
// anything else (bad request, auth, content policy) is not.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return respond.Transient(err)
		}
		return respond.Permanent(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return respond.Transient(err)
	}
	return respond.Transient(err)
}

// Chat implements respond.ChatProvider on top of chat completions.
type Chat struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

func NewChat(apiKey, model string, temperature float64) *Chat {
	return &Chat{
		client:      goopenai.NewClient(apiKey),
		model:       model,
		temperature: float32(temperature),
	}
}

func (c *Chat) Complete(ctx context.Context, messages []contextstore.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", respond.Permanent(errors.New("chat completion returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Image implements respond.ImageProvider using the images endpoint.
type Image struct {
	client *goopenai.Client
}

func NewImage(apiKey string) *Image {
	return &Image{client: goopenai.NewClient(apiKey)}
}

func (i *Image) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := i.client.CreateImage(ctx, goopenai.ImageRequest{
		Prompt:         prompt,
		N:              1,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("image generation: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, respond.Permanent(errors.New("image generation returned no data"))
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, respond.Permanent(fmt.Errorf("decode generated image: %w", err))
	}
	return img, nil
}

func (i *Image) Vary(ctx context.Context, image []byte) ([]byte, error) {
	// The variation endpoint wants a file handle, not a reader.
	tmp, err := os.CreateTemp("", "variation-*.png")
	if err != nil {
		return nil, respond.Permanent(fmt.Errorf("stage image for variation: %w", err))
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(image); err != nil {
		return nil, respond.Permanent(fmt.Errorf("stage image for variation: %w", err))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, respond.Permanent(fmt.Errorf("stage image for variation: %w", err))
	}

	resp, err := i.client.CreateVariImage(ctx, goopenai.ImageVariRequest{
		Image:          tmp,
		N:              1,
		Size:           goopenai.CreateImageSize1024x1024,
		ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("image variation: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, respond.Permanent(errors.New("image variation returned no data"))
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, respond.Permanent(fmt.Errorf("decode varied image: %w", err))
	}
	return img, nil
}

// Transcriber implements respond.TranscriptionProvider via Whisper.
type Transcriber struct {
	client *goopenai.Client
	model  string
}

func NewTranscriber(apiKey, model string) *Transcriber {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Transcriber{client: goopenai.NewClient(apiKey), model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", classify(fmt.Errorf("transcribe %s: %w", filename, err))
	}
	return resp.Text, nil
}
