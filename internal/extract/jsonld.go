package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
)

// qualifyingTypes are matched as case-sensitive substrings of the block's
// declared @type, so subtypes like "FastFoodRestaurant" qualify.
var qualifyingTypes = []string{"LocalBusiness", "Restaurant", "Organization", "Store"}

// fromStructuredData scans JSON-LD script blocks in document order and
// returns the first qualifying business block. A block that fails to parse
// is skipped, never fatal to the scan.
func fromStructuredData(doc *goquery.Document) *Extraction {
	var found *Extraction

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			zap.L().Debug("extract: skipping malformed json-ld block",
				zap.Int("block", i),
				zap.Error(err),
			)
			return true
		}

		// A block may be a single node or an array of nodes.
		nodes := []any{payload}
		if arr, ok := payload.([]any); ok {
			nodes = arr
		}

		for _, node := range nodes {
			obj, ok := node.(map[string]any)
			if !ok {
				continue
			}
			if !typeQualifies(obj["@type"]) {
				continue
			}
			found = &Extraction{
				Method:  model.MethodStructuredData,
				Phone:   stringField(obj, "telephone"),
				Website: stringField(obj, "url"),
				Address: streetAddress(obj["address"]),
				Name:    stringField(obj, "name"),
			}
			return false
		}
		return true
	})

	return found
}

// typeQualifies checks a JSON-LD @type value (string or array of strings)
// against the qualifying business types.
func typeQualifies(v any) bool {
	switch t := v.(type) {
	case string:
		for _, q := range qualifyingTypes {
			if strings.Contains(t, q) {
				return true
			}
		}
	case []any:
		for _, item := range t {
			if typeQualifies(item) {
				return true
			}
		}
	}
	return false
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// streetAddress reads the nested streetAddress from a PostalAddress node.
// Plain string addresses are accepted as-is.
func streetAddress(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		return stringField(a, "streetAddress")
	}
	return ""
}
