// Package extract pulls category trails out of product page markup.
//
// Extraction runs as an ordered chain of strategies; the first one that
// yields labels wins and its tag is reported with the result. Strategies
// swallow malformed markup and JSON so a broken block simply falls through
// to the next source. The chain order and the DOM selector list are
// configuration: the target site's markup shifts between releases and the
// strategies have to shift with it.
package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Source tags reported with extraction results.
const (
	TagJSONLDBreadcrumb = "jsonld_breadcrumb"
	TagJSONLDProduct    = "jsonld_product"
	TagMicrodata        = "microdata"
	TagDataLayer        = "datalayer"
	TagDOM              = "dom"
	TagNone             = "none"
)

// Page wraps one page's markup with a lazily parsed document so the chain
// parses at most once no matter how many strategies inspect it.
type Page struct {
	HTML   string
	doc    *goquery.Document
	parsed bool
}

// NewPage wraps raw markup.
func NewPage(html []byte) *Page {
	return &Page{HTML: string(html)}
}

// Doc returns the parsed document, or nil when the markup cannot be parsed.
func (p *Page) Doc() *goquery.Document {
	if !p.parsed {
		p.parsed = true
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(p.HTML)))
		if err == nil {
			p.doc = doc
		}
	}
	return p.doc
}

// Strategy is one way of finding a category trail in page markup.
// Implementations return nil when the page holds nothing for them.
type Strategy interface {
	Tag() string
	Extract(p *Page) []string
}

// Chain runs strategies in order until one produces labels.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds a chain over the given strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// DefaultStrategies returns the standard strategy order: structured
// breadcrumbs, structured product category, microdata, embedded page state,
// DOM selectors.
func DefaultStrategies(domSelectors []string) []Strategy {
	return []Strategy{
		JSONLDBreadcrumb{},
		JSONLDProduct{},
		Microdata{},
		DataLayer{},
		NewDOM(domSelectors),
	}
}

// FromNames builds strategies for the configured tag names, preserving order.
func FromNames(names []string, domSelectors []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case TagJSONLDBreadcrumb:
			out = append(out, JSONLDBreadcrumb{})
		case TagJSONLDProduct:
			out = append(out, JSONLDProduct{})
		case TagMicrodata:
			out = append(out, Microdata{})
		case TagDataLayer:
			out = append(out, DataLayer{})
		case TagDOM:
			out = append(out, NewDOM(domSelectors))
		default:
			return nil, fmt.Errorf("unknown extraction strategy %q", name)
		}
	}
	return out, nil
}

// Extract runs the chain over raw markup and returns the labels plus the tag
// of the strategy that produced them, or (nil, "none").
func (c *Chain) Extract(html []byte) ([]string, string) {
	if len(html) == 0 {
		return nil, TagNone
	}
	page := NewPage(html)
	for _, s := range c.strategies {
		if labels := s.Extract(page); len(labels) > 0 {
			c.logger.Debug("taxonomy extracted",
				zap.String("source", s.Tag()),
				zap.Int("levels", len(labels)),
			)
			return labels, s.Tag()
		}
	}
	return nil, TagNone
}
