// Package speech synthesizes audio from text using Amazon Polly.
//
// Short texts are synthesized synchronously. Polly rejects texts over its
// synchronous limit, in which case the caller falls back to
// StartSynthesisTask, a Polly-side job that writes its mp3 straight into
// the configured S3 bucket.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/robermar23/mastodon-bot/internal/respond"
)

// Synthesizer implements respond.SpeechProvider.
type Synthesizer struct {
	client   *polly.Client
	bucket   string
	s3Prefix string
}

func NewSynthesizer(awsCfg aws.Config, bucket, s3Prefix string) *Synthesizer {
	return &Synthesizer{
		client:   polly.NewFromConfig(awsCfg),
		bucket:   bucket,
		s3Prefix: s3Prefix,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voice),
	})
	if err != nil {
		var tooLong *types.TextLengthExceededException
		if errors.As(err, &tooLong) {
			return nil, respond.ErrSpeechTooLong
		}
		return nil, respond.Transient(fmt.Errorf("synthesize speech: %w", err))
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, respond.Transient(fmt.Errorf("read audio stream: %w", err))
	}
	return audio, nil
}

// StartSynthesisTask starts an asynchronous synthesis job. Polly writes
// the result to s3://{bucket}/{prefix}.{taskID}.mp3 when it completes.
func (s *Synthesizer) StartSynthesisTask(ctx context.Context, text, voice string) (string, error) {
	out, err := s.client.StartSpeechSynthesisTask(ctx, &polly.StartSpeechSynthesisTaskInput{
		OutputFormat:       types.OutputFormatMp3,
		OutputS3BucketName: aws.String(s.bucket),
		OutputS3KeyPrefix:  aws.String(s.s3Prefix),
		Text:               aws.String(text),
		VoiceId:            types.VoiceId(voice),
	})
	if err != nil {
		return "", respond.Transient(fmt.Errorf("start synthesis task: %w", err))
	}
	if out.SynthesisTask == nil || out.SynthesisTask.TaskId == nil {
		return "", respond.Permanent(errors.New("synthesis task started without a task id"))
	}
	return *out.SynthesisTask.TaskId, nil
}

// Voice is one entry from the available voice catalogue.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Language string `json:"language"`
}

// Voices lists the voices available for synthesis.
func (s *Synthesizer) Voices(ctx context.Context) ([]Voice, error) {
	var voices []Voice
	var nextToken *string
	for {
		out, err := s.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("describe voices: %w", err)
		}
		for _, v := range out.Voices {
			voices = append(voices, Voice{
				ID:       string(v.Id),
				Name:     aws.ToString(v.Name),
				Gender:   string(v.Gender),
				Language: string(v.LanguageCode),
			})
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return voices, nil
}
