package nominatim

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache keyed by the
// location text. Only successful matches are cached, so transient "no
// match" responses and errors can be retried.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, domain.Coordinates]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[string, domain.Coordinates](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

// Geocode serves repeated lookups for the same location from the cache.
func (c *CachedGeocoder) Geocode(ctx context.Context, location string) (*domain.Coordinates, error) {
	if coords, ok := c.cache.Get(location); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		out := coords
		return &out, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	coords, err := c.inner.Geocode(ctx, location)
	if err != nil || coords == nil {
		return coords, err
	}
	c.cache.Add(location, *coords)
	return coords, nil
}
