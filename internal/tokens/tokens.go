// Package tokens estimates generation cost of conversation history and
// truncates it to a budget.
package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/robermar23/mastodon-bot/internal/contextstore"
)

// Per-message overhead of the chat wire format: every message is framed
// and every reply is primed with an assistant marker.
const (
	perMessageTokens = 4
	replyPrimeTokens = 2
)

// Estimator counts tokens with the model's tiktoken encoding when it is
// available, and falls back to a word-count proxy (roughly 0.75 words per
// token) otherwise. Both are deterministic and monotonic in text length.
type Estimator struct {
	encoding *tiktoken.Tiktoken
}

// NewEstimator builds an estimator for model. It never fails: when neither
// the model encoding nor the cl100k_base default can be loaded (the
// encoding data may not be cached offline), the word-count proxy is used.
func NewEstimator(model string) *Estimator {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encoding = nil
		}
	}
	return &Estimator{encoding: encoding}
}

// Count returns the estimated token cost of text.
func (e *Estimator) Count(text string) int {
	if e.encoding != nil {
		return len(e.encoding.Encode(text, nil, nil))
	}
	// ~750 words per 1000 tokens.
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

// MessagesCost returns the estimated cost of a full message history,
// including per-message framing overhead.
func (e *Estimator) MessagesCost(messages []contextstore.Message) int {
	cost := replyPrimeTokens
	for _, m := range messages {
		cost += perMessageTokens + e.Count(m.Content)
	}
	return cost
}

// Fits reports whether messages fit within budget.
func (e *Estimator) Fits(messages []contextstore.Message, budget int) bool {
	return e.MessagesCost(messages) <= budget
}

// Reduce drops the oldest non-system messages until the history fits the
// budget. The system message at index 0 is preserved while anything else
// can go; if the system message alone still exceeds budget it is dropped
// too, leaving at least the most recent message. Reduce never fails.
func (e *Estimator) Reduce(messages []contextstore.Message, budget int) []contextstore.Message {
	reduced := messages
	for len(reduced) > 1 && e.MessagesCost(reduced) > budget {
		if reduced[0].Role == "system" {
			if len(reduced) > 2 {
				reduced = append(reduced[:1:1], reduced[2:]...)
				continue
			}
			// Only the system message and one other remain. Keep the
			// recent message, sacrifice the persona.
			reduced = reduced[1:]
			continue
		}
		reduced = reduced[1:]
	}
	return reduced
}
