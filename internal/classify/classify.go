// Package classify normalizes breadcrumb trails and applies the catalog rule.
//
// A product counts as cataloged when its cleaned trail keeps at least two
// useful levels and none of them is a generic bucket (Otros/Miscel*/Varios).
package classify

import (
	"regexp"
	"strings"
)

// miscPattern matches the generic bucket labels that disqualify a trail.
var miscPattern = regexp.MustCompile(`(?i)(otros|miscel|varios|variedad|otros productos)`)

// separatorGlyphs are literal crumb entries that carry no taxonomy meaning.
var separatorGlyphs = map[string]struct{}{
	">": {}, "/": {}, "|": {}, "›": {}, "»": {}, "•": {},
}

// noiseTokens are labels dropped case-insensitively during cleaning.
var noiseTokens = map[string]struct{}{
	"home": {}, "inicio": {}, "búsqueda": {}, "busqueda": {},
	"resultados": {}, "search": {}, "results": {},
}

// splitPattern breaks a single category string into hierarchy levels.
var splitPattern = regexp.MustCompile(`\s*[>/|›»]+\s*|\s*-\s*`)

// Clean normalizes a raw crumb list: empties and separator glyphs go away,
// home/search noise is dropped, and immediate repeats collapse. The second
// return reports whether the input had any non-empty entry at all, which
// distinguishes "only noise" from "nothing extracted".
func Clean(raw []string) ([]string, bool) {
	cleaned := make([]string, 0, len(raw))
	hadAny := false
	for _, c := range raw {
		t := strings.TrimSpace(c)
		if t == "" {
			continue
		}
		hadAny = true
		if _, sep := separatorGlyphs[t]; sep {
			continue
		}
		if _, noise := noiseTokens[strings.ToLower(t)]; noise {
			continue
		}
		if len(cleaned) == 0 || cleaned[len(cleaned)-1] != t {
			cleaned = append(cleaned, t)
		}
	}
	onlyNoise := len(cleaned) == 0 && hadAny
	return cleaned, onlyNoise
}

// Cataloged reports whether a cleaned trail satisfies the catalog rule.
func Cataloged(cleaned []string) bool {
	if len(cleaned) < 2 {
		return false
	}
	for _, c := range cleaned {
		if miscPattern.MatchString(c) {
			return false
		}
	}
	return true
}

// IsNoise reports whether a single label is a home/search noise token.
func IsNoise(label string) bool {
	_, ok := noiseTokens[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// IsSeparator reports whether a single label is a bare separator glyph.
func IsSeparator(label string) bool {
	_, ok := separatorGlyphs[strings.TrimSpace(label)]
	return ok
}

// SplitPath breaks a category string like "Moda/Mujer/Bottoms" or
// "Hogar > Cocina" into its levels, dropping empty fragments. When no
// separator is present the whole string is returned as a single level.
func SplitPath(category string) []string {
	parts := splitPattern.Split(category, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 && strings.TrimSpace(category) != "" {
		out = append(out, strings.TrimSpace(category))
	}
	return out
}

// Observation messages reported alongside not-cataloged rows.
const (
	ObsOnlyHome    = "breadcrumb carries only Home/Inicio"
	ObsSingleLevel = "only one useful breadcrumb level"
	ObsMissing     = "missing levels or miscellaneous bucket"
	ObsNoTaxonomy  = "page found but no breadcrumb extracted"
	ObsNotFound    = "not found / no HTML"
)

// Observation explains why a trail failed the rule; cataloged trails get "".
// An empty trail that was not reduced from noise means extraction found
// nothing on the page at all.
func Observation(cleaned []string, onlyNoise bool) string {
	switch {
	case Cataloged(cleaned):
		return ""
	case onlyNoise:
		return ObsOnlyHome
	case len(cleaned) == 0:
		return ObsNoTaxonomy
	case len(cleaned) == 1:
		return ObsSingleLevel
	default:
		return ObsMissing
	}
}
