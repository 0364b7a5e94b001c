// Package extract recovers contact fields from raw page markup. Strategies
// run in a fixed priority order and the first one to yield anything wins:
// Schema.org JSON-LD, then embedded meta tags, then a phone-pattern sweep
// over the raw text.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
)

// Extraction holds the fields recovered from a page, tagged with the
// strategy that produced them. Fields are independently optional.
type Extraction struct {
	Method  model.ExtractionMethod
	Phone   string
	Website string
	Address string
	Name    string
}

// Extract runs the strategy chain over raw markup. Malformed input is
// tolerated at every level; Extract never panics and returns nil when no
// strategy finds anything. Finding nothing is not a failure.
func Extract(markup string) *Extraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		// html.Parse is lenient, so this is rare. The pattern fallback
		// works on the raw string and still gets its chance.
		zap.L().Debug("extract: markup parse failed, falling back to pattern match",
			zap.Error(err),
		)
		doc = nil
	}

	if doc != nil {
		if ex := fromStructuredData(doc); ex != nil {
			return ex
		}
		if ex := fromMetaTags(doc); ex != nil {
			return ex
		}
	}

	return fromPhonePattern(markup)
}
