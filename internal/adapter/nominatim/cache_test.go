package nominatim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

type countingGeocoder struct {
	coords *domain.Coordinates
	err    error
	calls  int
}

func (g *countingGeocoder) Geocode(context.Context, string) (*domain.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func TestCachedGeocoder_ServesRepeatsFromCache(t *testing.T) {
	inner := &countingGeocoder{coords: &domain.Coordinates{Lat: 34.73, Lon: -86.58}}
	cached, err := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	first, err := cached.Geocode(context.Background(), "Huntsville, AL")
	require.NoError(t, err)
	second, err := cached.Geocode(context.Background(), "Huntsville, AL")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, *first, *second)
	// The cached copy is independent of the first result.
	assert.NotSame(t, first, second)
}

func TestCachedGeocoder_DoesNotCacheMissesOrErrors(t *testing.T) {
	inner := &countingGeocoder{}
	cached, err := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	coords, err := cached.Geocode(context.Background(), "Nowhere, XX")
	require.NoError(t, err)
	assert.Nil(t, coords)
	_, err = cached.Geocode(context.Background(), "Nowhere, XX")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("upstream down")
	_, err = cached.Geocode(context.Background(), "Huntsville, AL")
	require.Error(t, err)
	_, err = cached.Geocode(context.Background(), "Huntsville, AL")
	require.Error(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, observability.NewMetricsForTesting())
	require.Error(t, err)
}
