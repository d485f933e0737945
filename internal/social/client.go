// Package social binds the response pipeline to Mastodon: a posting
// client and a streaming listener that turns inbound statuses into jobs.
package social

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-mastodon"

	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/htmltext"
	"github.com/robermar23/mastodon-bot/internal/respond"
)

// Client implements respond.SocialClient against a Mastodon server.
type Client struct {
	api        *mastodon.Client
	visibility string
	accountID  mastodon.ID
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	api := mastodon.NewClient(&mastodon.Config{
		Server:       cfg.MastodonServer,
		ClientID:     cfg.MastodonClientID,
		ClientSecret: cfg.MastodonClientSecret,
		AccessToken:  cfg.MastodonAccessToken,
	})

	account, err := api.GetAccountCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify mastodon credentials: %w", err)
	}

	return &Client{
		api:        api,
		visibility: cfg.PostVisibility,
		accountID:  account.ID,
	}, nil
}

// AccountID is the bot's own account id, used to skip self-authored posts.
func (c *Client) AccountID() string {
	return string(c.accountID)
}

func (c *Client) GetPost(ctx context.Context, id string) (*respond.Post, error) {
	status, err := c.api.GetStatus(ctx, mastodon.ID(id))
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", id, err)
	}
	return c.toPost(status), nil
}

func (c *Client) PostReply(ctx context.Context, text, inReplyToID string, mediaIDs []string) (*respond.Post, error) {
	toot := &mastodon.Toot{
		Status:      text,
		InReplyToID: mastodon.ID(inReplyToID),
		Visibility:  c.visibility,
	}
	for _, id := range mediaIDs {
		toot.MediaIDs = append(toot.MediaIDs, mastodon.ID(id))
	}

	status, err := c.api.PostStatus(ctx, toot)
	if err != nil {
		return nil, fmt.Errorf("post status: %w", err)
	}
	return c.toPost(status), nil
}

func (c *Client) UploadMedia(ctx context.Context, data []byte, filename string) (string, error) {
	attachment, err := c.api.UploadMediaFromReader(ctx, bytes.NewReader(data))
	if err != nil {
		err = fmt.Errorf("upload media %s: %w", filename, err)
		// 413 is the server refusing the payload size; retrying the same
		// bytes cannot succeed.
		if strings.Contains(err.Error(), "413") {
			return "", respond.Oversized(err)
		}
		return "", respond.Transient(err)
	}
	return string(attachment.ID), nil
}

func (c *Client) toPost(status *mastodon.Status) *respond.Post {
	post := &respond.Post{
		ID:          string(status.ID),
		InReplyToID: normalizeID(status.InReplyToID),
		Content:     htmltext.Text(status.Content),
		URL:         status.URL,
		// Skip our own statuses and anything from a bot-flagged account,
		// or two bots end up replying to each other forever.
		FromBot: status.Account.ID == c.accountID || status.Account.Bot,
	}
	if len(status.MediaAttachments) > 0 {
		post.AttachmentURL = status.MediaAttachments[0].URL
	}
	return post
}

// normalizeID flattens the wire representation of in_reply_to_id, which
// the API serves as either a string or a number depending on the server.
func normalizeID(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case mastodon.ID:
		return string(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
