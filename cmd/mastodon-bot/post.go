package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robermar23/mastodon-bot/internal/textutil"
)

func newPostCmd() *cobra.Command {
	var inReplyTo string

	cmd := &cobra.Command{
		Use:   "post [text]",
		Short: "Post a status from the command line",
		Long: "Posts the given text as the bot, split across multiple statuses\n" +
			"when it exceeds the configured length limit.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("nothing to post")
			}

			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}

			chunks := textutil.SplitByWords(text, app.cfg.MaxStatusChars)
			replyTo := inReplyTo
			for i, chunk := range chunks {
				posted, err := app.social.PostReply(cmd.Context(), chunk, replyTo, nil)
				if err != nil {
					return fmt.Errorf("post chunk %d/%d: %w", i+1, len(chunks), err)
				}
				fmt.Println(posted.ID)
				replyTo = posted.ID
				if i < len(chunks)-1 {
					time.Sleep(app.cfg.PostDelay)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inReplyTo, "in-reply-to", "", "Status id to reply to")
	return cmd
}
