// Package archive renders overlong or code-bearing responses to a static
// HTML page in object storage, so the posted reply can carry a link
// instead of a wall of chunks.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/google/uuid"
)

// lengthThreshold is the response size, in runes, beyond which a response
// is archived even without code.
const lengthThreshold = 1000

// Uploader stores a rendered page and returns its public URL.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ShouldArchive reports whether body warrants an archive page: it contains
// a fenced or inline code span, or it is longer than the threshold.
func ShouldArchive(body string) bool {
	if strings.Contains(body, "`") {
		return true
	}
	return len([]rune(body)) > lengthThreshold
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>body{max-width:48rem;margin:2rem auto;padding:0 1rem;font-family:sans-serif;line-height:1.5}pre{background:#f4f4f4;padding:1rem;overflow-x:auto}</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{.Body}}
</body>
</html>
`))

// Publisher renders markdown bodies to standalone HTML pages and uploads
// them under a key derived from the triggering status.
type Publisher struct {
	uploader Uploader
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// NewPublisher creates a Publisher storing pages via uploader.
func NewPublisher(uploader Uploader, logger *slog.Logger) *Publisher {
	return &Publisher{
		uploader: uploader,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		),
		logger: logger,
	}
}

// Publish renders body and uploads it, returning the public URL.
func (p *Publisher) Publish(ctx context.Context, title, body, statusID, inReplyToID string) (string, error) {
	var rendered bytes.Buffer
	if err := p.markdown.Convert([]byte(body), &rendered); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(rendered.String())})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	url, err := p.uploader.Put(ctx, PageKey(statusID, inReplyToID), page.Bytes(), "text/html")
	if err != nil {
		return "", fmt.Errorf("upload archive page: %w", err)
	}

	p.logger.Debug("archived response", "url", url, "status_id", statusID)
	return url, nil
}

// PageKey derives the storage key for a status. Replies include the
// reply-to id so two archives from one thread cannot collide. Uploads are
// idempotent by key: retrying the same status overwrites the same object.
func PageKey(statusID, inReplyToID string) string {
	switch {
	case statusID == "":
		return uuid.NewString() + ".html"
	case inReplyToID == "":
		return statusID + ".html"
	default:
		return statusID + "-" + inReplyToID + ".html"
	}
}
