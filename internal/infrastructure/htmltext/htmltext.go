package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"DigestFeed/internal/ports"
)

// Extractor flattens feed HTML snippets into plain text.
type Extractor struct{}

var _ ports.SnippetExtractor = Extractor{}

// Snippet returns the visible text of markup with whitespace collapsed,
// cut to maxRunes (zero or less disables the cut).
func (Extractor) Snippet(markup string, maxRunes int) string {
	text := PlainText(markup)
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}

// PlainText drops tags, scripts and styles from markup.
func PlainText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	if !strings.ContainsAny(markup, "<&") {
		return strings.Join(strings.Fields(markup), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Join(strings.Fields(markup), " ")
	}
	doc.Find("script, style, noscript").Remove()

	// Block boundaries separate words; inline boundaries do not.
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.BeforeNodes(space())
		s.AfterNodes(space())
	})

	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

const blockElements = "address, article, aside, blockquote, br, dd, div, dl, dt, " +
	"figcaption, figure, footer, h1, h2, h3, h4, h5, h6, header, hr, li, " +
	"main, nav, ol, p, pre, section, table, td, th, tr, ul"

func space() *html.Node {
	return &html.Node{Type: html.TextNode, Data: " "}
}
