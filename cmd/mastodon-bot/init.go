package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robermar23/mastodon-bot/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Validate configuration and show what the bot will do",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Printf("server:          %s\n", cfg.MastodonServer)
			fmt.Printf("response type:   %s\n", cfg.ResponseType)
			fmt.Printf("post visibility: %s\n", cfg.PostVisibility)
			fmt.Printf("status limit:    %d chars\n", cfg.MaxStatusChars)
			if cfg.ResponseType == config.ResponseChat {
				fmt.Printf("chat model:      %s\n", cfg.ChatModel)
				fmt.Printf("context expiry:  %s\n", cfg.ContextMaxAge())
			}
			if cfg.QueueEnabled() {
				fmt.Printf("queue:           %s (retries=%d, delay=%s)\n",
					cfg.QueueName, cfg.QueueRetryAttempts, cfg.QueueRetryDelay)
			} else {
				fmt.Println("queue:           disabled, responding inline")
			}
			if cfg.S3Bucket != "" {
				fmt.Printf("archive bucket:  %s/%s\n", cfg.S3Bucket, cfg.S3PrefixPath)
			}

			fmt.Println("\nconfiguration ok")
			return nil
		},
	}
}
