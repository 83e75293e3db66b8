package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retailtools/catalogcheck/internal/classify"
)

// JSONLDBreadcrumb reads schema.org BreadcrumbList blocks, including blocks
// nested under @graph containers.
type JSONLDBreadcrumb struct{}

// Tag implements Strategy.
func (JSONLDBreadcrumb) Tag() string { return TagJSONLDBreadcrumb }

// Extract implements Strategy.
func (JSONLDBreadcrumb) Extract(p *Page) []string {
	var found []string
	forEachJSONLDBlock(p, func(block map[string]any) bool {
		if names := breadcrumbNames(block); len(names) > 0 {
			found = names
			return false
		}
		for _, g := range graphEntries(block) {
			if names := breadcrumbNames(g); len(names) > 0 {
				found = names
				return false
			}
		}
		return true
	})
	return found
}

// JSONLDProduct reads the category string off schema.org Product blocks and
// splits it into levels.
type JSONLDProduct struct{}

// Tag implements Strategy.
func (JSONLDProduct) Tag() string { return TagJSONLDProduct }

// Extract implements Strategy.
func (JSONLDProduct) Extract(p *Page) []string {
	var found []string
	forEachJSONLDBlock(p, func(block map[string]any) bool {
		if cat := productCategory(block); cat != "" {
			found = classify.SplitPath(cat)
			return false
		}
		for _, g := range graphEntries(block) {
			if cat := productCategory(g); cat != "" {
				found = classify.SplitPath(cat)
				return false
			}
		}
		return true
	})
	return found
}

// forEachJSONLDBlock walks every object found in ld+json script tags,
// flattening top-level arrays. Blocks that fail to parse as a whole are
// retried line by line; some sites emit several bare objects per tag.
// The visitor returns false to stop the walk.
func forEachJSONLDBlock(p *Page, visit func(map[string]any) bool) {
	doc := p.Doc()
	if doc == nil {
		return
	}
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(text), &data); err == nil {
			return visitDecoded(data, visit)
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var decoded any
			if err := json.Unmarshal([]byte(line), &decoded); err != nil {
				continue
			}
			if !visitDecoded(decoded, visit) {
				return false
			}
		}
		return true
	})
}

func visitDecoded(data any, visit func(map[string]any) bool) bool {
	switch v := data.(type) {
	case map[string]any:
		return visit(v)
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				if !visit(obj) {
					return false
				}
			}
		}
	}
	return true
}

func graphEntries(block map[string]any) []map[string]any {
	graph, ok := block["@graph"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(graph))
	for _, g := range graph {
		if obj, ok := g.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func breadcrumbNames(block map[string]any) []string {
	typ, _ := block["@type"].(string)
	if typ != "BreadcrumbList" && typ != "ItemList" {
		return nil
	}
	items, ok := block["itemListElement"].([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, raw := range items {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := itemName(entry)
		if name == "" || classify.IsNoise(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// itemName prefers the nested item.name over the list element's own name.
func itemName(entry map[string]any) string {
	if item, ok := entry["item"].(map[string]any); ok {
		if name, ok := item["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	if name, ok := entry["name"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

func productCategory(block map[string]any) string {
	typ, _ := block["@type"].(string)
	if typ != "Product" && typ != "IndividualProduct" {
		return ""
	}
	if cat, ok := block["category"].(string); ok && strings.TrimSpace(cat) != "" {
		return strings.TrimSpace(cat)
	}
	if brand, ok := block["brand"].(map[string]any); ok {
		if cat, ok := brand["category"].(string); ok && strings.TrimSpace(cat) != "" {
			return strings.TrimSpace(cat)
		}
	}
	return ""
}
