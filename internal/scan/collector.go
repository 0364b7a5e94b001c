// Package scan iterates the venue source, filters eligible venues, and
// owns the per-session result set.
package scan

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/analyze"
	"github.com/placescan/placescan/internal/model"
)

// excludedCategories lists category tags that disqualify a venue from
// scanning: non-business places that never carry contact fields.
var excludedCategories = map[string]struct{}{
	"RESIDENCE_HOME":           {},
	"NATURAL_FEATURES":         {},
	"SCENIC_LOOKOUT_VIEWPOINT": {},
	"PARK":                     {},
	"JUNCTION_INTERCHANGE":     {},
	"BRIDGE":                   {},
	"TUNNEL":                   {},
	"ISLAND":                   {},
	"SEA_LAKE_POOL":            {},
	"RIVER_STREAM":             {},
	"CANAL":                    {},
	"FOREST_GROVE":             {},
}

// Collector builds and owns the scan result set. Each Scan fully replaces
// the previous results; entries are never incrementally patched.
type Collector struct {
	mu       sync.RWMutex
	entries  map[string]*model.ScanEntry
	location model.LocationContext
	scanned  int
	skipped  int
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{entries: make(map[string]*model.ScanEntry)}
}

// Scan classifies every eligible venue and replaces the result set.
// Returns the scanned and skipped counts.
func (c *Collector) Scan(venues []model.Venue, loc model.LocationContext) (scanned, skipped int) {
	entries := make(map[string]*model.ScanEntry, len(venues))

	for _, v := range venues {
		if !eligible(v) {
			skipped++
			continue
		}
		entries[v.ID] = &model.ScanEntry{
			Venue:    v,
			Analysis: analyze.Analyze(v),
			Location: loc,
		}
		scanned++
	}

	c.mu.Lock()
	c.entries = entries
	c.location = loc
	c.scanned = scanned
	c.skipped = skipped
	c.mu.Unlock()

	zap.L().Info("scan complete",
		zap.Int("scanned", scanned),
		zap.Int("skipped", skipped),
		zap.String("city", loc.City),
		zap.String("state", loc.StateAbbr),
	)
	return scanned, skipped
}

// eligible reports whether a venue is scored and stored: business records
// with a non-empty name and no excluded category.
func eligible(v model.Venue) bool {
	if v.Residential {
		return false
	}
	if strings.TrimSpace(v.Name) == "" {
		return false
	}
	for _, cat := range v.Categories {
		if _, excluded := excludedCategories[cat]; excluded {
			return false
		}
	}
	return true
}

// Get returns the entry for a venue identity.
func (c *Collector) Get(id string) (*model.ScanEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// AttachExtraction replaces the extraction result on a venue's entry.
// Only the extraction field mutates; the analysis stays as scanned.
func (c *Collector) AttachExtraction(id string, res *model.ExtractionResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	e.Extraction = res
	return true
}

// Entries returns a snapshot of all entries sorted worst severity first,
// then by venue name for a stable review order.
func (c *Collector) Entries() []model.ScanEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.ScanEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Analysis.Severity != out[j].Analysis.Severity {
			return out[i].Analysis.Severity.WorseThan(out[j].Analysis.Severity)
		}
		return out[i].Venue.Name < out[j].Venue.Name
	})
	return out
}

// Counts returns the scanned and skipped counts from the last scan.
func (c *Collector) Counts() (scanned, skipped int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scanned, c.skipped
}

// Location returns the location context of the last scan.
func (c *Collector) Location() model.LocationContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.location
}

// Stats tallies the current entries per severity.
func (c *Collector) Stats() analyze.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]model.AnalysisResult, 0, len(c.entries))
	for _, e := range c.entries {
		results = append(results, e.Analysis)
	}
	return analyze.Summarize(results)
}
