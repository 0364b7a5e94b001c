package extract

import (
	"regexp"
	"strings"

	"github.com/placescan/placescan/internal/model"
)

// phoneRe matches US-style phone numbers: optional +1 country code,
// optional parentheses around the area code, and -, ., space, or no
// separator between groups. A bare 10-digit run anywhere in the page
// matches too, which can false-positive on ids or prices; results carry
// the pattern-match tag so reviewers can weigh them accordingly.
var phoneRe = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}`)

// fromPhonePattern is the last-resort strategy: the first phone-shaped
// match in the raw text. Only phone is attempted at this level.
func fromPhonePattern(raw string) *Extraction {
	m := phoneRe.FindString(raw)
	if m == "" {
		return nil
	}
	return &Extraction{
		Method: model.MethodPatternMatch,
		Phone:  strings.TrimSpace(m),
	}
}
