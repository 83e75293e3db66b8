package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/retailtools/catalogcheck/internal/classify"
)

var (
	dataLayerPattern = regexp.MustCompile(`(?s)dataLayer\s*=\s*(\[.*?])`)
	vtexPattern      = regexp.MustCompile(`(?s)vtex.{0,50}?=\s*(\{.*?});`)
)

// categoryKeys are the analytics event fields that carry a category path.
var categoryKeys = []string{"category", "department", "pageCategory"}

// breadcrumbKeys name hydration-payload lists that hold breadcrumb entries.
var breadcrumbKeys = map[string]struct{}{"breadcrumb": {}, "breadcrumbs": {}}

// DataLayer scans embedded page-state JSON: analytics data layers and
// framework hydration payloads such as __NEXT_DATA__.
type DataLayer struct{}

// Tag implements Strategy.
func (DataLayer) Tag() string { return TagDataLayer }

// Extract implements Strategy.
func (DataLayer) Extract(p *Page) []string {
	if cat := analyticsCategory(p.HTML); cat != "" {
		return classify.SplitPath(cat)
	}
	return nextDataBreadcrumbs(p)
}

func analyticsCategory(html string) string {
	match := dataLayerPattern.FindStringSubmatch(html)
	if match == nil {
		match = vtexPattern.FindStringSubmatch(html)
	}
	if match == nil {
		return ""
	}
	var data any
	if err := json.Unmarshal([]byte(match[1]), &data); err != nil {
		return ""
	}
	switch v := data.(type) {
	case []any:
		for _, ev := range v {
			if obj, ok := ev.(map[string]any); ok {
				if cat := firstCategoryKey(obj); cat != "" {
					return cat
				}
			}
		}
	case map[string]any:
		return firstCategoryKey(v)
	}
	return ""
}

func firstCategoryKey(obj map[string]any) string {
	for _, key := range categoryKeys {
		if cat, ok := obj[key].(string); ok && strings.TrimSpace(cat) != "" {
			return strings.TrimSpace(cat)
		}
	}
	return ""
}

// nextDataBreadcrumbs walks the __NEXT_DATA__ payload for breadcrumb lists.
// Entries may be bare strings or objects keyed name/label/title.
func nextDataBreadcrumbs(p *Page) []string {
	doc := p.Doc()
	if doc == nil {
		return nil
	}
	raw := strings.TrimSpace(doc.Find(`script#__NEXT_DATA__`).Text())
	if raw == "" {
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	cleaned, _ := classify.Clean(walkForBreadcrumbs(payload))
	return cleaned
}

// walkForBreadcrumbs returns the first non-empty breadcrumb list in the
// payload. Map keys are visited in sorted order so a payload holding
// several lists always yields the same one.
func walkForBreadcrumbs(node any) []string {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if list, ok := v[key].([]any); ok {
				if _, crumbKey := breadcrumbKeys[strings.ToLower(key)]; crumbKey {
					if labels := collectBreadcrumbList(list); len(labels) > 0 {
						return labels
					}
					continue
				}
			}
			if labels := walkForBreadcrumbs(v[key]); len(labels) > 0 {
				return labels
			}
		}
	case []any:
		for _, item := range v {
			if labels := walkForBreadcrumbs(item); len(labels) > 0 {
				return labels
			}
		}
	}
	return nil
}

func collectBreadcrumbList(list []any) []string {
	var labels []string
	for _, item := range list {
		switch entry := item.(type) {
		case string:
			labels = append(labels, entry)
		case map[string]any:
			for _, key := range []string{"name", "label", "title"} {
				if name, ok := entry[key].(string); ok && strings.TrimSpace(name) != "" {
					labels = append(labels, strings.TrimSpace(name))
					break
				}
			}
		}
	}
	return labels
}
