// Package query builds web search queries that disambiguate a venue name.
package query

import "strings"

// Build assembles a search query from a venue name, its categories, and the
// viewport location. Segments join in a fixed order: name, category hint,
// "city stateAbbr". A segment with nothing to contribute is omitted, never
// replaced with a placeholder.
//
// The name is used as stored, typos included; the search provider's fuzzy
// matching is relied on for correction. Only the first category tag is
// consulted for a hint.
func Build(name string, categories []string, city, stateAbbr string) string {
	parts := make([]string, 0, 3)

	if n := strings.TrimSpace(name); n != "" {
		parts = append(parts, n)
	}

	if len(categories) > 0 {
		if hint, ok := HintFor(categories[0]); ok {
			parts = append(parts, hint)
		}
	}

	city = strings.TrimSpace(city)
	stateAbbr = strings.TrimSpace(stateAbbr)
	if city != "" && stateAbbr != "" {
		parts = append(parts, city+" "+stateAbbr)
	}

	return strings.Join(parts, " ")
}
