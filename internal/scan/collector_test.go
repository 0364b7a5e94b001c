package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescan/placescan/internal/model"
)

var testLoc = model.LocationContext{City: "Denver", State: "Colorado", StateAbbr: "CO"}

func TestScan_ClassifiesEligibleVenues(t *testing.T) {
	c := NewCollector()
	scanned, skipped := c.Scan([]model.Venue{
		{ID: "v1", Name: "Joe's Cafe", Categories: []string{"CAFE"}},
		{ID: "v2", Name: "Acme Garage", Phone: "555-1234", URL: "https://acme.example"},
	}, testLoc)

	assert.Equal(t, 2, scanned)
	assert.Equal(t, 0, skipped)

	e, ok := c.Get("v1")
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, e.Analysis.Severity)
	assert.Equal(t, testLoc, e.Location)

	e, ok = c.Get("v2")
	require.True(t, ok)
	assert.Equal(t, model.SeverityComplete, e.Analysis.Severity)
}

func TestScan_SkipsIneligible(t *testing.T) {
	c := NewCollector()
	scanned, skipped := c.Scan([]model.Venue{
		{ID: "v1", Name: "My House", Residential: true},
		{ID: "v2", Name: "  "},
		{ID: "v3", Name: "City Park", Categories: []string{"PARK"}},
		{ID: "v4", Name: "Boat Ramp", Categories: []string{"SEA_LAKE_POOL", "OTHER"}},
		{ID: "v5", Name: "Joe's Cafe", Categories: []string{"CAFE"}},
	}, testLoc)

	assert.Equal(t, 1, scanned)
	assert.Equal(t, 4, skipped)

	_, ok := c.Get("v1")
	assert.False(t, ok)
	_, ok = c.Get("v5")
	assert.True(t, ok)
}

func TestScan_ReplacesPreviousResults(t *testing.T) {
	c := NewCollector()
	c.Scan([]model.Venue{{ID: "old", Name: "Old Venue"}}, testLoc)

	require.True(t, c.AttachExtraction("old", &model.ExtractionResult{Method: model.MethodNone}))

	c.Scan([]model.Venue{{ID: "new", Name: "New Venue"}}, testLoc)

	// The old entry and its extraction are gone: scans are full
	// replacements, not merges.
	_, ok := c.Get("old")
	assert.False(t, ok)
	e, ok := c.Get("new")
	require.True(t, ok)
	assert.Nil(t, e.Extraction)
}

func TestAttachExtraction_ReplacesWholeRecord(t *testing.T) {
	c := NewCollector()
	c.Scan([]model.Venue{{ID: "v1", Name: "Joe's Cafe"}}, testLoc)

	first := &model.ExtractionResult{
		Method: model.MethodStructuredData,
		Phone:  "303-555-0147",
	}
	require.True(t, c.AttachExtraction("v1", first))

	second := &model.ExtractionResult{
		Err:         "No search results found",
		SearchQuery: "Joe's Cafe Denver CO",
	}
	require.True(t, c.AttachExtraction("v1", second))

	e, _ := c.Get("v1")
	assert.Equal(t, second, e.Extraction)
	assert.Empty(t, e.Extraction.Phone)
}

func TestAttachExtraction_UnknownVenue(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.AttachExtraction("missing", &model.ExtractionResult{}))
}

func TestEntries_WorstFirst(t *testing.T) {
	c := NewCollector()
	c.Scan([]model.Venue{
		{ID: "a", Name: "Complete Co", Phone: "1", URL: "u"},
		{ID: "b", Name: "Critical Co"},
		{ID: "c", Name: "Minor Co", Phone: "555-1234"},
		{ID: "d", Name: "Another Critical"},
	}, testLoc)

	// "Minor Co" is missing only website with contact info present.
	entries := c.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, model.SeverityCritical, entries[0].Analysis.Severity)
	assert.Equal(t, "Another Critical", entries[0].Venue.Name)
	assert.Equal(t, "Critical Co", entries[1].Venue.Name)
	assert.Equal(t, model.SeverityMinor, entries[2].Analysis.Severity)
	assert.Equal(t, model.SeverityComplete, entries[3].Analysis.Severity)
}

func TestStats(t *testing.T) {
	c := NewCollector()
	c.Scan([]model.Venue{
		{ID: "a", Name: "One"},
		{ID: "b", Name: "Two"},
		{ID: "c", Name: "Three", Phone: "555-1234", URL: "https://x.example"},
	}, testLoc)

	s := c.Stats()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.BySeverity[model.SeverityCritical])
	assert.Equal(t, 1, s.BySeverity[model.SeverityComplete])
}
