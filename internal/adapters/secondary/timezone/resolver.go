// Package timezone resolves coordinates to IANA timezone names from the
// timezone boundary data embedded in tzf.
package timezone

import (
	"fmt"

	"github.com/ringsaturn/tzf"
)

// Resolver implements ports.TimezoneResolver. The finder is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	finder tzf.F
}

// NewResolver loads the default boundary data set. Loading takes a moment
// and a few tens of megabytes, so build one Resolver per process.
func NewResolver() (*Resolver, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("loading timezone data: %w", err)
	}

	return &Resolver{finder: finder}, nil
}

// At returns the zone covering the point, or false when none does.
func (r *Resolver) At(lat, lon float64) (string, bool) {
	name := r.finder.GetTimezoneName(lon, lat)

	return name, name != ""
}
