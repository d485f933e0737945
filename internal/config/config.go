// Package config provides configuration loading for the bot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ResponseType selects the generation strategy applied to inbound posts.
type ResponseType string

const (
	ResponseReverseString ResponseType = "reverse_string"
	ResponseChat          ResponseType = "open_ai_chat"
	ResponseImage         ResponseType = "open_ai_image"
	ResponseTranscribe    ResponseType = "open_ai_transcribe"
	ResponseTextToSpeech  ResponseType = "text_to_speech"
)

// Config holds all configuration for the bot.
type Config struct {
	// Mastodon settings
	MastodonServer       string
	MastodonClientID     string
	MastodonClientSecret string
	MastodonAccessToken  string
	PostVisibility       string

	// Response pipeline settings
	ResponseType    ResponseType
	MaxStatusChars  int
	PostDelay       time.Duration
	MaxResolveDepth int

	// OpenAI settings
	OpenAIAPIKey       string
	ChatModel          string
	ChatTemperature    float64
	ChatMaxTokens      int
	ChatMaxAgeHours    int
	ChatPersona        string
	TranscriptionModel string

	// Queue settings (empty RedisURL means inline processing)
	RedisURL           string
	QueueName          string
	QueueRetryAttempts int
	QueueRetryDelay    time.Duration
	QueueTaskTimeout   time.Duration
	WorkerConcurrency  int

	// AWS settings for speech synthesis and archive storage
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Bucket           string
	S3PrefixPath       string
	SpeechVoice        string

	// Optional settings
	LogLevel string
}

// Load loads configuration from MASTODON_BOT_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("MASTODON_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("RESPONSE_TYPE", string(ResponseChat))
	v.SetDefault("POST_VISIBILITY", "private")
	v.SetDefault("MAX_STATUS_CHARS", 500)
	v.SetDefault("POST_DELAY_MS", 500)
	v.SetDefault("MAX_RESOLVE_DEPTH", 50)
	v.SetDefault("CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("CHAT_TEMPERATURE", 0.0)
	v.SetDefault("CHAT_MAX_TOKENS", 4096)
	v.SetDefault("CHAT_MAX_AGE_HOURS", 24)
	v.SetDefault("CHAT_PERSONA", "You are a helpful assistant")
	v.SetDefault("TRANSCRIPTION_MODEL", "whisper-1")
	v.SetDefault("QUEUE_NAME", "mastodon-bot")
	v.SetDefault("QUEUE_RETRY_ATTEMPTS", 3)
	v.SetDefault("QUEUE_RETRY_DELAY_S", 60)
	v.SetDefault("QUEUE_TASK_TIMEOUT_S", 3600)
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX_PATH", "unroll/")
	v.SetDefault("SPEECH_VOICE", "Brian")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		MastodonServer:       v.GetString("MASTODON_SERVER"),
		MastodonClientID:     v.GetString("MASTODON_CLIENT_ID"),
		MastodonClientSecret: v.GetString("MASTODON_CLIENT_SECRET"),
		MastodonAccessToken:  v.GetString("MASTODON_ACCESS_TOKEN"),
		PostVisibility:       v.GetString("POST_VISIBILITY"),
		ResponseType:         ResponseType(v.GetString("RESPONSE_TYPE")),
		MaxStatusChars:       v.GetInt("MAX_STATUS_CHARS"),
		PostDelay:            time.Duration(v.GetInt("POST_DELAY_MS")) * time.Millisecond,
		MaxResolveDepth:      v.GetInt("MAX_RESOLVE_DEPTH"),
		OpenAIAPIKey:         v.GetString("OPENAI_API_KEY"),
		ChatModel:            v.GetString("CHAT_MODEL"),
		ChatTemperature:      v.GetFloat64("CHAT_TEMPERATURE"),
		ChatMaxTokens:        v.GetInt("CHAT_MAX_TOKENS"),
		ChatMaxAgeHours:      v.GetInt("CHAT_MAX_AGE_HOURS"),
		ChatPersona:          v.GetString("CHAT_PERSONA"),
		TranscriptionModel:   v.GetString("TRANSCRIPTION_MODEL"),
		RedisURL:             v.GetString("REDIS_URL"),
		QueueName:            v.GetString("QUEUE_NAME"),
		QueueRetryAttempts:   v.GetInt("QUEUE_RETRY_ATTEMPTS"),
		QueueRetryDelay:      time.Duration(v.GetInt("QUEUE_RETRY_DELAY_S")) * time.Second,
		QueueTaskTimeout:     time.Duration(v.GetInt("QUEUE_TASK_TIMEOUT_S")) * time.Second,
		WorkerConcurrency:    v.GetInt("WORKER_CONCURRENCY"),
		AWSRegion:            v.GetString("AWS_REGION"),
		AWSAccessKeyID:       v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:   v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:             v.GetString("S3_BUCKET"),
		S3PrefixPath:         v.GetString("S3_PREFIX_PATH"),
		SpeechVoice:          v.GetString("SPEECH_VOICE"),
		LogLevel:             v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present, collecting
// every problem into one error so a misconfigured deployment reports the
// full list at once.
func (c *Config) Validate() error {
	var errs []string

	if c.MastodonServer == "" {
		errs = append(errs, "MASTODON_BOT_MASTODON_SERVER is required")
	}
	if c.MastodonAccessToken == "" {
		errs = append(errs, "MASTODON_BOT_MASTODON_ACCESS_TOKEN is required")
	}

	switch c.ResponseType {
	case ResponseReverseString:
		// Diagnostic mode, no provider credentials needed.
	case ResponseChat, ResponseImage, ResponseTranscribe:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Sprintf("MASTODON_BOT_OPENAI_API_KEY is required for response type %q", c.ResponseType))
		}
	case ResponseTextToSpeech:
		if c.AWSAccessKeyID == "" || c.AWSSecretAccessKey == "" {
			errs = append(errs, "MASTODON_BOT_AWS_ACCESS_KEY_ID and MASTODON_BOT_AWS_SECRET_ACCESS_KEY are required for text to speech")
		}
		if c.S3Bucket == "" {
			errs = append(errs, "MASTODON_BOT_S3_BUCKET is required for text to speech")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid response type %q", c.ResponseType))
	}

	if c.MaxStatusChars < 1 {
		errs = append(errs, fmt.Sprintf("MASTODON_BOT_MAX_STATUS_CHARS must be positive, got %d", c.MaxStatusChars))
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// QueueEnabled reports whether work items go through the durable queue
// instead of being processed inline by the listener.
func (c *Config) QueueEnabled() bool {
	return c.RedisURL != ""
}

// ContextMaxAge is the conversation context expiry window.
func (c *Config) ContextMaxAge() time.Duration {
	return time.Duration(c.ChatMaxAgeHours) * time.Hour
}
