package source

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// LoadJSON reads a JSON export: {"location": {...}, "venues": [...]}.
func LoadJSON(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrUnavailable, "source: read %s", path)
	}

	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, eris.Wrap(err, "source: parse json export")
	}
	if len(exp.Venues) == 0 {
		return nil, eris.Wrap(ErrUnavailable, "source: export has no venues")
	}
	return &exp, nil
}
