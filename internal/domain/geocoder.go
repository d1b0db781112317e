package domain

import "context"

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a free-text location string ("Huntsville, AL") to
// coordinates. A nil result with a nil error means the provider had no
// match; both outcomes are non-fatal to an enrichment pass.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (*Coordinates, error)
}
