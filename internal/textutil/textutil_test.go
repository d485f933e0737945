package textutil

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterWords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prefix string
		want   []string
	}{
		{
			name:   "mentions",
			input:  "@test @test2 test3 test4, hello world",
			prefix: "@",
			want:   []string{"@test", "@test2"},
		},
		{
			name:   "letter prefix",
			input:  "Hi, how are you doing today?",
			prefix: "H",
			want:   []string{"Hi,"},
		},
		{
			name:   "no matches",
			input:  "nothing to see here",
			prefix: "@",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterWords(tt.input, tt.prefix))
		})
	}
}

func TestRemoveWord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		word  string
		want  string
	}{
		{
			name:  "single occurrence",
			input: "I want to remove this word",
			word:  "this",
			want:  "I want to remove word",
		},
		{
			name:  "repeated occurrences",
			input: "I want to remove this word this as this appears three times",
			word:  "this",
			want:  "I want to remove word as appears three times",
		},
		{
			name:  "case sensitive",
			input: "This stays but this goes",
			word:  "this",
			want:  "This stays but goes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveWord(tt.input, tt.word))
		})
	}
}

func TestSplitString(t *testing.T) {
	assert.Equal(t,
		[]string{"1111111111", "2222222222", "3333333333"},
		SplitString("111111111122222222223333333333", 10))

	assert.Equal(t,
		[]string{"1111111111", " 222222222", "2 33333333", "33"},
		SplitString("1111111111 2222222222 3333333333", 10))

	assert.Equal(t, []string{"short"}, SplitString("short", 10))
}

func TestSplitByWordsSingleChunk(t *testing.T) {
	chunks := SplitByWords("hello world", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world /1", chunks[0])
}

func TestSplitByWordsNeverSplitsWords(t *testing.T) {
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	chunks := SplitByWords(text, 30)
	require.Greater(t, len(chunks), 1)

	words := map[string]bool{}
	for _, w := range strings.Fields(text) {
		words[w] = true
	}

	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 30, "chunk %d over limit: %q", i, c)
		if i == len(chunks)-1 {
			assert.True(t, strings.HasSuffix(c, " /"+itoa(i+1)), "final chunk suffix: %q", c)
		} else {
			assert.True(t, strings.HasSuffix(c, " .../"+itoa(i+1)), "chunk %d suffix: %q", i, c)
		}
		for _, w := range strings.Fields(stripCounter(c)) {
			assert.True(t, words[w], "chunk %d split a word: %q", i, c)
		}
	}
}

func TestSplitByWordsLossless(t *testing.T) {
	texts := []string{
		"one paragraph only, nothing fancy",
		"first paragraph with some words\n\nsecond paragraph with more words to push past the limit\n\nthird",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
	}
	for _, text := range texts {
		for _, limit := range []int{25, 60, 120, 500} {
			chunks := SplitByWords(text, limit)
			var joined strings.Builder
			for _, c := range chunks {
				joined.WriteString(stripCounter(c))
			}
			assert.Equal(t, text, joined.String(), "limit %d", limit)
		}
	}
}

func TestSplitByWordsTinyLimitNeverExceedsIt(t *testing.T) {
	// At limit 8 the counter digits of chunk 100 leave no room for
	// content, so the splitter degrades to plain fixed-width pieces
	// rather than emitting an over-long chunk.
	text := strings.Repeat("ab ", 80)
	chunks := SplitByWords(text, 8)

	var joined strings.Builder
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 8, "chunk %d over limit: %q", i, c)
		joined.WriteString(c)
	}
	assert.Equal(t, text, joined.String())
}

func TestSplitByWordsDeterministic(t *testing.T) {
	text := strings.Repeat("same input every time ", 50)
	assert.Equal(t, SplitByWords(text, 80), SplitByWords(text, 80))
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("see https://example.com/a and http://other.org/b, done")
	assert.Equal(t, []string{"https://example.com/a", "http://other.org/b"}, urls)

	assert.Empty(t, ExtractURLs("no links here"))
}

func TestExtractURLsBalancesParens(t *testing.T) {
	// A paren that is part of the path survives; one closing a
	// surrounding parenthetical does not.
	urls := ExtractURLs("read https://en.wikipedia.org/wiki/Go_(programming_language) first")
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Go_(programming_language)"}, urls)

	urls = ExtractURLs("(details at https://example.com/doc).")
	assert.Equal(t, []string{"https://example.com/doc"}, urls)

	urls = ExtractURLs("(see https://en.wikipedia.org/wiki/Go_(programming_language)).")
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Go_(programming_language)"}, urls)
}

func TestReverse(t *testing.T) {
	assert.Equal(t, "olleh", Reverse("hello"))
	assert.Equal(t, "", Reverse(""))
}

func stripCounter(chunk string) string {
	if i := strings.LastIndex(chunk, " .../"); i >= 0 {
		return chunk[:i]
	}
	if i := strings.LastIndex(chunk, " /"); i >= 0 {
		return chunk[:i]
	}
	return chunk
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
