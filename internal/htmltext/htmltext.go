// Package htmltext extracts readable plain text from remote and inline
// HTML, the posting platform's native content format.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Text strips markup from an HTML fragment and returns its visible text.
// Script and style contents are dropped; block-level boundaries become
// newlines so paragraph structure survives. Input that fails to parse is
// returned as-is.
func Text(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var b strings.Builder
	walk(root, &b)
	return strings.TrimSpace(b.String())
}

func walk(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			b.WriteString("\n")
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "tr":
			if b.Len() > 0 {
				b.WriteString("\n")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "blockquote", "pre":
			b.WriteString("\n")
		}
	}
}
