// Package sku derives search candidates from raw product identifiers.
package sku

import "strings"

// Separator splits a SKU from its offer-variant suffix.
const Separator = "-"

// Candidates returns the identifiers to try for a raw SKU, in order.
// The trimmed original always comes first; when the SKU carries a variant
// suffix the base before the first separator is appended as a fallback.
func Candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	candidates := []string{trimmed}
	if strings.Contains(trimmed, Separator) {
		base := strings.TrimSpace(strings.SplitN(trimmed, Separator, 2)[0])
		if base != "" && base != trimmed {
			candidates = append(candidates, base)
		}
	}
	return candidates
}
