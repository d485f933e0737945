package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robermar23/mastodon-bot/internal/contextstore"
)

// The zero-value Estimator uses the word-count proxy, which keeps these
// tests independent of tiktoken's encoding data.
func proxyEstimator() *Estimator {
	return &Estimator{}
}

func TestCountMonotonicAndDeterministic(t *testing.T) {
	e := proxyEstimator()

	short := "a few words"
	long := short + " and then quite a lot more words on top of those"

	assert.Equal(t, e.Count(short), e.Count(short))
	assert.GreaterOrEqual(t, e.Count(long), e.Count(short))
	assert.Equal(t, 0, e.Count(""))
}

func TestReduceEnforcesBudget(t *testing.T) {
	e := proxyEstimator()

	messages := []contextstore.Message{
		{Role: "system", Content: "You are a helpful assistant"},
	}
	for i := 0; i < 20; i++ {
		messages = append(messages,
			contextstore.Message{Role: "user", Content: strings.Repeat("question words here ", 30)},
			contextstore.Message{Role: "assistant", Content: strings.Repeat("answer words here ", 30)},
		)
	}

	budget := 500
	require.Greater(t, e.MessagesCost(messages), budget)

	reduced := e.Reduce(messages, budget)
	assert.LessOrEqual(t, e.MessagesCost(reduced), budget)
	assert.Equal(t, "system", reduced[0].Role, "system message survives ordinary truncation")
	assert.Equal(t, messages[len(messages)-1], reduced[len(reduced)-1], "newest message survives")
}

func TestReduceDropsOldestFirst(t *testing.T) {
	e := proxyEstimator()

	messages := []contextstore.Message{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: strings.Repeat("old ", 200)},
		{Role: "assistant", Content: strings.Repeat("old ", 200)},
		{Role: "user", Content: "newest"},
	}

	reduced := e.Reduce(messages, 100)
	require.NotEmpty(t, reduced)
	assert.Equal(t, "newest", reduced[len(reduced)-1].Content)
	for _, m := range reduced[:len(reduced)-1] {
		assert.NotContains(t, m.Content, "old ")
	}
}

func TestReduceOversizedSystemMessage(t *testing.T) {
	e := proxyEstimator()

	messages := []contextstore.Message{
		{Role: "system", Content: strings.Repeat("enormous persona ", 500)},
		{Role: "user", Content: "hello"},
	}

	reduced := e.Reduce(messages, 50)
	require.Len(t, reduced, 1)
	assert.Equal(t, "user", reduced[0].Role, "persona is sacrificed before the latest user message")
}

func TestReduceSingleMessageNeverDropped(t *testing.T) {
	e := proxyEstimator()

	messages := []contextstore.Message{
		{Role: "user", Content: strings.Repeat("way over budget ", 500)},
	}

	reduced := e.Reduce(messages, 10)
	assert.Equal(t, messages, reduced, "a lone message stays even over budget")
}
