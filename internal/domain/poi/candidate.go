// Package poi holds the point-of-interest document and the search candidate
// built from a backend hit.
package poi

import (
	"math"
	"strconv"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
)

// POI is an indexed point of interest.
type POI struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   geo.Point `json:"-"`
	Category   string    `json:"category,omitempty"`
	Amenity    string    `json:"amenity,omitempty"`
	Popularity int       `json:"popularity"`
	Address    string    `json:"address,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
	KeyPhrases []string  `json:"key_phrases,omitempty"`
	KeyInfo    string    `json:"key_info,omitempty"`
	Rewrites   []string  `json:"rewrites,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Candidate is a POI hit flowing through merge and ranking.
type Candidate struct {
	ID           string
	Name         string
	Location     *geo.Point
	Category     string
	Popularity   int
	BackendScore float64
	// DistanceKm is nil when the hit has no location.
	DistanceKm   *float64
	RecallSource Provenance
	FinalScore   float64
}

// Clone returns a deep copy; provenance and pointers are not shared.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	if c.DistanceKm != nil {
		d := *c.DistanceKm
		out.DistanceKm = &d
	}
	out.RecallSource = c.RecallSource.Clone()
	return out
}

// SetDistanceFrom sets DistanceKm relative to origin, or clears it when the
// candidate has no location.
func (c *Candidate) SetDistanceFrom(origin geo.Point) {
	if c.Location == nil {
		c.DistanceKm = nil
		return
	}
	d := origin.Distance(*c.Location)
	c.DistanceKm = &d
}

// Fingerprint returns the content key (name, lat, lon rounded to precision
// decimals). ok is false when name or location is missing.
func (c Candidate) Fingerprint(precision int) (key string, ok bool) {
	if c.Name == "" || c.Location == nil {
		return "", false
	}
	lat := roundTo(c.Location.Lat, precision)
	lon := roundTo(c.Location.Lon, precision)
	return c.Name + "|" +
		strconv.FormatFloat(lat, 'f', precision, 64) + "|" +
		strconv.FormatFloat(lon, 'f', precision, 64), true
}

// roundTo rounds half away from zero. Negative zero collapses to zero so
// keys compare by value.
func roundTo(v float64, precision int) float64 {
	p := math.Pow10(precision)
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}
