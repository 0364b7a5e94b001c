package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/placescan/placescan/internal/model"
)

// Meta tag selectors per field, in priority order. The first tag with a
// non-empty content attribute wins; each field is searched independently.
var (
	metaPhoneSelectors = []string{
		`meta[property="og:contact_data:phone_number"]`,
		`meta[name="telephone"]`,
		`meta[property="telephone"]`,
	}
	metaWebsiteSelectors = []string{
		`meta[property="og:url"]`,
		`meta[name="url"]`,
		`meta[property="url"]`,
	}
	metaAddressSelectors = []string{
		`meta[property="og:contact_data:street_address"]`,
		`meta[name="street-address"]`,
		`meta[property="street-address"]`,
	}
)

// fromMetaTags reads page-level metadata annotations. Returns nil only
// when none of the three fields has a match.
func fromMetaTags(doc *goquery.Document) *Extraction {
	ex := &Extraction{
		Method:  model.MethodEmbeddedMetadata,
		Phone:   metaContent(doc, metaPhoneSelectors),
		Website: metaContent(doc, metaWebsiteSelectors),
		Address: metaContent(doc, metaAddressSelectors),
	}
	if ex.Phone == "" && ex.Website == "" && ex.Address == "" {
		return nil
	}
	return ex
}

// metaContent returns the content attribute of the first selector that
// matches a tag with a non-empty value.
func metaContent(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if v := strings.TrimSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}
