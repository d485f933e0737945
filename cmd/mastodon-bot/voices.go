package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/speech"
)

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices available for text to speech",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			awsCfg, err := buildAWSConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			synth := speech.NewSynthesizer(awsCfg, cfg.S3Bucket, cfg.S3PrefixPath)
			voices, err := synth.Voices(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(voices)
		},
	}
}
