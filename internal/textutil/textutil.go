// Package textutil provides the text helpers used by the response pipeline:
// mention filtering, fixed-width splitting, and word-boundary chunking.
package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

// FilterWords returns the words of s that start with prefix.
func FilterWords(s, prefix string) []string {
	filtered := []string{}
	for _, word := range strings.Fields(s) {
		if strings.HasPrefix(word, prefix) {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

// RemoveWord removes every exact, case-sensitive occurrence of word from s.
// Runs of whitespace collapse to single spaces.
func RemoveWord(s, word string) string {
	kept := []string{}
	for _, w := range strings.Fields(s) {
		if w != word {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// SplitString splits s into fixed-width pieces of at most maxLength runes.
// Words may be cut mid-way; concatenating the pieces yields s unchanged.
func SplitString(s string, maxLength int) []string {
	if maxLength < 1 {
		return []string{s}
	}
	runes := []rune(s)
	pieces := []string{}
	for start := 0; start < len(runes); start += maxLength {
		end := start + maxLength
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// minChunkSize is the smallest limit at which part counters still fit.
const minChunkSize = 8

// SplitByWords splits text into chunks of at most maxLength runes each,
// counter suffix included. Chunk boundaries prefer paragraph breaks, then
// word breaks; a word is only cut when it alone exceeds the chunk body.
// Non-final chunks carry a " .../N" suffix and the final chunk " /N", N
// being the 1-based chunk index. Stripping the suffixes and concatenating
// the bodies reconstructs text exactly.
func SplitByWords(text string, maxLength int) []string {
	if maxLength < minChunkSize {
		return SplitString(text, maxLength)
	}

	runes := []rune(text)
	bodies := [][]rune{}
	start := 0
	for index := 1; start < len(runes); index++ {
		// Reserve room for the widest suffix this chunk could carry. Once
		// the counter digits leave no room for content, counters can no
		// longer fit within the limit at all: restart as plain fixed-width
		// pieces, which stay within the limit and remain lossless.
		budget := maxLength - len(" .../") - digits(index)
		if budget < 1 {
			return SplitString(text, maxLength)
		}
		if start+maxLength-len(" /")-digits(index) >= len(runes) {
			bodies = append(bodies, runes[start:])
			break
		}
		cut := cutPoint(runes, start, start+budget)
		bodies = append(bodies, runes[start:cut])
		start = cut
	}
	if len(bodies) == 0 {
		bodies = [][]rune{{}}
	}

	chunks := make([]string, len(bodies))
	for i, body := range bodies {
		n := strconv.Itoa(i + 1)
		if i == len(bodies)-1 {
			chunks[i] = string(body) + " /" + n
		} else {
			chunks[i] = string(body) + " .../" + n
		}
	}
	return chunks
}

// cutPoint picks where to end the chunk beginning at start, scanning no
// further than limit. Preference order: after a paragraph break, at the last
// whitespace, hard cut when the window holds a single unbroken word.
func cutPoint(runes []rune, start, limit int) int {
	lastSpace := -1
	for i := limit; i > start; i-- {
		if runes[i-1] == '\n' && i-2 >= start && runes[i-2] == '\n' {
			return i
		}
		if lastSpace == -1 && isSpace(runes[i-1]) {
			lastSpace = i - 1
		}
	}
	if lastSpace > start {
		return lastSpace
	}
	return limit
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func digits(n int) int {
	return len(strconv.Itoa(n))
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractURLs returns the http(s) URLs found in text, in order of
// appearance, with trailing punctuation trimmed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, trimTrailingPunct(m))
	}
	return urls
}

// trimTrailingPunct strips sentence punctuation that the URL pattern
// swallows. A closing paren is kept while it balances an open paren in
// the URL itself (Wikipedia-style paths), stripped otherwise.
func trimTrailingPunct(url string) string {
	for len(url) > 0 {
		last := url[len(url)-1]
		if strings.IndexByte(".,;:!?", last) >= 0 {
			url = url[:len(url)-1]
			continue
		}
		if last == ')' && strings.Count(url, ")") > strings.Count(url, "(") {
			url = url[:len(url)-1]
			continue
		}
		break
	}
	return url
}

// Reverse reverses s rune by rune.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
