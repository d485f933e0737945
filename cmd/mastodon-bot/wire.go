package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/robermar23/mastodon-bot/internal/archive"
	"github.com/robermar23/mastodon-bot/internal/config"
	"github.com/robermar23/mastodon-bot/internal/contextstore"
	"github.com/robermar23/mastodon-bot/internal/htmltext"
	"github.com/robermar23/mastodon-bot/internal/objectstore"
	"github.com/robermar23/mastodon-bot/internal/providers/openai"
	"github.com/robermar23/mastodon-bot/internal/queue"
	"github.com/robermar23/mastodon-bot/internal/respond"
	"github.com/robermar23/mastodon-bot/internal/social"
	"github.com/robermar23/mastodon-bot/internal/speech"
	"github.com/robermar23/mastodon-bot/internal/tokens"
)

// app bundles everything a command needs after wiring.
type app struct {
	cfg       *config.Config
	social    *social.Client
	responder *respond.Responder
	queue     *queue.Client
}

// buildApp loads configuration and assembles the response pipeline with
// the providers the configured response type needs.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	client, err := social.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := respond.Deps{
		Social:  client,
		Fetcher: htmltext.NewFetcher(30 * time.Second),
		Logger:  logger,
	}

	var queueClient *queue.Client
	if cfg.QueueEnabled() {
		queueClient, err = queue.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		deps.SpeechQueue = queueClient
	}

	switch cfg.ResponseType {
	case config.ResponseChat:
		deps.Chat = openai.NewChat(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.ChatTemperature)
		deps.Store, err = buildContextStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		deps.Estimator = tokens.NewEstimator(cfg.ChatModel)
	case config.ResponseImage:
		deps.Image = openai.NewImage(cfg.OpenAIAPIKey)
	case config.ResponseTranscribe:
		deps.Transcriber = openai.NewTranscriber(cfg.OpenAIAPIKey, cfg.TranscriptionModel)
	case config.ResponseTextToSpeech:
		awsCfg, err := buildAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Speech = speech.NewSynthesizer(awsCfg, cfg.S3Bucket, cfg.S3PrefixPath)
		deps.Objects = objectstore.NewS3Store(awsCfg, cfg.S3Bucket, cfg.S3PrefixPath)
	}

	// The archive needs object storage; wire it whenever S3 is configured.
	if deps.Objects == nil && cfg.S3Bucket != "" {
		awsCfg, err := buildAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Objects = objectstore.NewS3Store(awsCfg, cfg.S3Bucket, cfg.S3PrefixPath)
	}
	if deps.Objects != nil {
		deps.Archive = archive.NewPublisher(deps.Objects, logger)
	}

	responder := respond.New(respond.Options{
		Mode:            cfg.ResponseType,
		Persona:         cfg.ChatPersona,
		ChatMaxTokens:   cfg.ChatMaxTokens,
		MaxStatusChars:  cfg.MaxStatusChars,
		PostDelay:       cfg.PostDelay,
		MaxResolveDepth: cfg.MaxResolveDepth,
		SpeechVoice:     cfg.SpeechVoice,
	}, deps)

	return &app{cfg: cfg, social: client, responder: responder, queue: queueClient}, nil
}

// buildContextStore picks the conversation context backend: Redis when
// configured, in-process memory otherwise. Contexts are namespaced by a
// key derived from the persona, so changing the persona starts fresh
// conversations instead of mixing histories.
func buildContextStore(cfg *config.Config, logger *slog.Logger) (contextstore.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("using in-memory conversation context", "max_age", cfg.ContextMaxAge())
		return contextstore.NewMemoryStore(cfg.ContextMaxAge()), nil
	}

	personaKey := contextstore.PersonaKey(cfg.ChatPersona)
	store, err := contextstore.NewRedisStore(cfg.RedisURL, personaKey, cfg.ContextMaxAge(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect context store: %w", err)
	}
	return store, nil
}

func buildAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}
