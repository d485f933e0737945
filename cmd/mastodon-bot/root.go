package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mastodon-bot",
		Short: "A Mastodon bot that replies to mentions with generated content",
		Long: "mastodon-bot listens to a Mastodon account's stream and replies to\n" +
			"inbound statuses using a configurable strategy: chat completion,\n" +
			"image generation, audio transcription or text to speech.\n\n" +
			"All configuration comes from MASTODON_BOT_* environment variables.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPostCmd())
	cmd.AddCommand(newListenCmd())
	cmd.AddCommand(newWorkCmd())
	cmd.AddCommand(newVoicesCmd())
	return cmd
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
