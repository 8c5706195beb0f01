package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in runes.
	MaxQueryLength  = 512
	DefaultRadiusKm = 5.0
	MaxRadiusKm     = 50.0
)

// Limits overrides the radius defaults. Zero fields fall back to the package constants.
type Limits struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

// Request is a validated search query.
type Request struct {
	query    string
	origin   geo.Point
	radiusKm float64
}

// New validates and normalizes search parameters. A nil radius uses the default.
func New(query string, lat, lon float64, radiusKm *float64, lim Limits) (Request, error) {
	if lim.DefaultRadiusKm <= 0 {
		lim.DefaultRadiusKm = DefaultRadiusKm
	}
	if lim.MaxRadiusKm <= 0 {
		lim.MaxRadiusKm = MaxRadiusKm
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if !geo.ValidateCoordinates(lat, lon) {
		return Request{}, fmt.Errorf("invalid coordinates: lat must be in [-90,90], lon in [-180,180]")
	}

	r := lim.DefaultRadiusKm
	if radiusKm != nil {
		r = *radiusKm
	}
	if r <= 0 || r > lim.MaxRadiusKm {
		return Request{}, fmt.Errorf("radius_km must be in (0, %g]", lim.MaxRadiusKm)
	}

	return Request{
		query:    query,
		origin:   geo.Point{Lat: lat, Lon: lon},
		radiusKm: r,
	}, nil
}

// Query returns the trimmed search text.
func (r *Request) Query() string { return r.query }

// Origin returns the requester coordinate.
func (r *Request) Origin() geo.Point { return r.origin }

// RadiusKm returns the search radius.
func (r *Request) RadiusKm() float64 { return r.radiusKm }
