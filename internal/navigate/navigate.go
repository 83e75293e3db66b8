// Package navigate locates the first product detail page on a search results
// page.
package navigate

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultProductTokens mark a URL as a product detail page on the target
// site: slug URLs ending in "-p<id>" and /p/ path segments.
var DefaultProductTokens = []string{"-p", "/p/"}

// Navigator resolves product detail links against a site base URL.
type Navigator struct {
	base   *url.URL
	tokens []string
}

// New builds a Navigator for the given site base. Tokens default to
// DefaultProductTokens when empty.
func New(base *url.URL, tokens []string) *Navigator {
	if len(tokens) == 0 {
		tokens = DefaultProductTokens
	}
	return &Navigator{base: base, tokens: tokens}
}

// IsProductURL reports whether a URL already points at a detail page.
func (n *Navigator) IsProductURL(raw string) bool {
	for _, tok := range n.tokens {
		if strings.Contains(raw, tok) {
			return true
		}
	}
	return false
}

// FirstProductURL scans search-results markup for the first detail-page link
// and resolves it to an absolute URL. Canonical-link and social-preview
// metadata are consulted when no anchor matches, in case the "results" page
// is itself a detail page. Returns "" when nothing matches; malformed markup
// is treated the same way.
func (n *Navigator) FirstProductURL(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || !n.IsProductURL(href) {
			return true
		}
		found = n.resolve(href)
		return found == ""
	})
	if found != "" {
		return found
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && n.IsProductURL(href) {
		return n.resolve(href)
	}
	if content, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && n.IsProductURL(content) {
		return n.resolve(content)
	}
	return ""
}

func (n *Navigator) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if n.base == nil {
		return ref.String()
	}
	return n.base.ResolveReference(ref).String()
}
