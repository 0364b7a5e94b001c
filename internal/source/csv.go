package source

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/placescan/placescan/internal/model"
)

// LoadCSV reads a flat CSV export, one venue per row. Headers are matched
// case-insensitively; the categories column is pipe-separated. The
// location context is taken from the first row carrying city/state
// columns.
func LoadCSV(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "source: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "source: read csv export")
	}
	if len(records) < 2 {
		return nil, eris.Wrap(ErrUnavailable, "source: csv has no data rows")
	}

	colIdx := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIdx["id"]; !ok {
		return nil, eris.New(`source: missing required column "id"`)
	}

	exp := &Export{}
	seen := make(map[string]bool)

	for _, row := range records[1:] {
		id := col(row, colIdx, "id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		v := model.Venue{
			ID:          id,
			Name:        col(row, colIdx, "name"),
			Phone:       col(row, colIdx, "phone"),
			URL:         col(row, colIdx, "url"),
			Street:      col(row, colIdx, "street"),
			Residential: isTruthy(col(row, colIdx, "residential")),
		}
		if cats := col(row, colIdx, "categories"); cats != "" {
			for _, c := range strings.Split(cats, "|") {
				if c = strings.TrimSpace(c); c != "" {
					v.Categories = append(v.Categories, c)
				}
			}
		}
		exp.Venues = append(exp.Venues, v)

		if exp.Location.City == "" {
			exp.Location = model.LocationContext{
				City:      col(row, colIdx, "city"),
				State:     col(row, colIdx, "state"),
				StateAbbr: stateAbbreviation(col(row, colIdx, "state")),
			}
			if abbr := col(row, colIdx, "state_abbr"); abbr != "" {
				exp.Location.StateAbbr = strings.ToUpper(abbr)
			}
		}
	}

	if len(exp.Venues) == 0 {
		return nil, eris.Wrap(ErrUnavailable, "source: no valid venues in csv")
	}
	return exp, nil
}

// col safely retrieves a trimmed column value from a CSV row.
func col(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

// stateAbbreviation maps a full state name to its two-letter form. Inputs
// already two letters long pass through uppercased; unknown names come
// back empty so the query builder omits the location segment.
func stateAbbreviation(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	return stateAbbrs[strings.ToLower(s)]
}

var stateAbbrs = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}
