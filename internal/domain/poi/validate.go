package poi

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the fields required for indexing.
func (p *POI) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%s: name is required", p.ID)
	}
	if !p.Location.Valid() {
		return fmt.Errorf("%s: invalid coordinates (%g, %g)", p.ID, p.Location.Lat, p.Location.Lon)
	}
	if p.Popularity < 0 {
		return fmt.Errorf("%s: popularity must be non-negative", p.ID)
	}
	return nil
}
