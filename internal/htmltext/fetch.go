package htmltext

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// maxFetchBytes caps how much of a remote document is read before
// conversion. Speech synthesis input is bounded anyway.
const maxFetchBytes = 2 << 20

// ErrUnsupportedContentType marks a remote resource whose media type is
// outside the readable allow-list. It is a permanent condition, never
// retried.
type ErrUnsupportedContentType struct {
	URL         string
	ContentType string
}

func (e *ErrUnsupportedContentType) Error() string {
	return fmt.Sprintf("unsupported content type %q at %s", e.ContentType, e.URL)
}

// StatusError marks a non-OK HTTP response. Callers inspect Code to
// decide whether the fetch is worth retrying.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Fetcher retrieves remote documents and converts them to a plain-text
// rendering suitable for speech synthesis.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// ReadableText fetches url and converts the body to plain text. Accepted
// media types: plain text, HTML, CSV and Markdown; anything else returns
// ErrUnsupportedContentType.
func (f *Fetcher) ReadableText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	return Convert(string(body), mediaType, url)
}

// Convert renders body to plain text according to its media type.
func Convert(body, mediaType, source string) (string, error) {
	switch mediaType {
	case "text/plain", "text/markdown":
		return body, nil
	case "text/html", "application/xhtml+xml":
		return Text(body), nil
	case "text/csv":
		return csvToText(body)
	default:
		return "", &ErrUnsupportedContentType{URL: source, ContentType: mediaType}
	}
}

// csvToText flattens CSV rows into sentence-like lines so they read
// naturally when spoken.
func csvToText(body string) (string, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		lines = append(lines, strings.Join(record, ", "))
	}
	return strings.Join(lines, ".\n"), nil
}

// Download fetches raw bytes from url, used for media attachments.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
