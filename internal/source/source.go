// Package source loads venue records exported from the map editor. Two
// export shapes are supported: a JSON document carrying the location
// context alongside the venues, and a flat CSV with one venue per row.
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/placescan/placescan/internal/model"
)

// ErrUnavailable marks a source that cannot be read at all (missing or
// empty file). Callers report zero scanned venues instead of failing
// destructively.
var ErrUnavailable = eris.New("venue source unavailable")

// Export is a loaded venue export: the venues plus the location context
// they were captured under.
type Export struct {
	Location model.LocationContext `json:"location"`
	Venues   []model.Venue         `json:"venues"`
}

// Load reads a venue export file, dispatching on extension (.json or
// .csv).
func Load(path string) (*Export, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "source: stat %s", path)
	}
	if info.Size() == 0 {
		return nil, eris.Wrapf(ErrUnavailable, "source: empty file %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, eris.Errorf("source: unsupported export format %q", filepath.Ext(path))
	}
}
