package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retailtools/catalogcheck/internal/classify"
)

// microdataSelector targets itemprop names under a BreadcrumbList scope.
const microdataSelector = `[itemtype*="BreadcrumbList"] [itemprop="itemListElement"] [itemprop="name"]`

// Microdata reads schema.org breadcrumb microdata embedded in element
// attributes rather than script blocks.
type Microdata struct{}

// Tag implements Strategy.
func (Microdata) Tag() string { return TagMicrodata }

// Extract implements Strategy.
func (Microdata) Extract(p *Page) []string {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	var names []string
	doc.Find(microdataSelector).Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		if name == "" || classify.IsNoise(name) {
			return
		}
		names = append(names, name)
	})
	return names
}
