package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retailtools/catalogcheck/internal/classify"
)

// DefaultDOMSelectors are the breadcrumb containers tried in order. These are
// site-specific heuristics, expected to be overridden via configuration when
// the target site's markup changes.
var DefaultDOMSelectors = []string{
	`nav[aria-label="breadcrumb"]`,
	"ol.breadcrumb, ul.breadcrumb, div.breadcrumb, div.breadcrumbs, li.breadcrumbs, nav.breadcrumb, nav.breadcrumbs",
}

// DOM reads visible breadcrumb containers from the rendered markup.
type DOM struct {
	selectors []string
}

// NewDOM builds the strategy with the given container selectors, falling
// back to the default list when none are provided.
func NewDOM(selectors []string) DOM {
	if len(selectors) == 0 {
		selectors = DefaultDOMSelectors
	}
	return DOM{selectors: selectors}
}

// Tag implements Strategy.
func (DOM) Tag() string { return TagDOM }

// Extract implements Strategy.
func (d DOM) Extract(p *Page) []string {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	for _, sel := range d.selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		var parts []string
		node.Find("a, span, li").Each(func(_ int, s *goquery.Selection) {
			text := normalizeText(s.Text())
			if text == "" || classify.IsSeparator(text) || classify.IsNoise(text) {
				return
			}
			if len(parts) == 0 || parts[len(parts)-1] != text {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return parts
		}
	}
	return nil
}

// normalizeText collapses runs of whitespace the way a browser renders them.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
