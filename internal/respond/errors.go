package respond

import (
	"errors"
	"fmt"
)

// ErrSpeechTooLong is returned by a SpeechProvider when the text exceeds
// the synchronous synthesis limit and an asynchronous job is needed.
var ErrSpeechTooLong = errors.New("text too long for synchronous speech synthesis")

// ErrorKind classifies provider failures for the retry policy.
type ErrorKind int

const (
	// KindTransient covers rate limits and connection failures: retryable
	// by the queue, replaced by a placeholder reply when inline.
	KindTransient ErrorKind = iota
	// KindPermanent covers bad requests, unsupported content and invalid
	// URIs: never retried.
	KindPermanent
	// KindOversizedPayload marks a platform rejection of a large media
	// attachment: delivery falls back to object storage plus a link.
	KindOversizedPayload
)

// ProviderError wraps a vendor failure with its retry classification.
type ProviderError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindTransient:
		return fmt.Sprintf("transient provider error: %v", e.Err)
	case KindOversizedPayload:
		return fmt.Sprintf("payload too large: %v", e.Err)
	default:
		return fmt.Sprintf("provider error: %v", e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	return &ProviderError{Kind: KindTransient, Err: err}
}

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	return &ProviderError{Kind: KindPermanent, Err: err}
}

// Oversized wraps err as an oversized-payload rejection.
func Oversized(err error) error {
	return &ProviderError{Kind: KindOversizedPayload, Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindTransient
}

// IsPermanent reports whether err is classified as non-retryable.
func IsPermanent(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindPermanent
}

// IsOversized reports whether err is an oversized-payload rejection.
func IsOversized(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindOversizedPayload
}
