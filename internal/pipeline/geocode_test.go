package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

// scriptedGeocoder returns canned results per location and records calls.
type scriptedGeocoder struct {
	coords map[string]*domain.Coordinates
	errs   map[string]error
	calls  []string
}

func (g *scriptedGeocoder) Geocode(_ context.Context, location string) (*domain.Coordinates, error) {
	g.calls = append(g.calls, location)
	if err, ok := g.errs[location]; ok {
		return nil, err
	}
	return g.coords[location], nil
}

func float64Ptr(v float64) *float64 { return &v }

func seedState(t *testing.T, repo *fakeRepository, stations ...domain.Station) {
	t.Helper()
	created, err := repo.UpsertState(context.Background(), domain.State{Code: "AL", Name: "Alabama"})
	require.NoError(t, err)
	require.True(t, created)
	for _, st := range stations {
		st.StateCode = "AL"
		created, err := repo.UpsertStation(context.Background(), st)
		require.NoError(t, err)
		require.True(t, created)
	}
}

func newTestEnricher(repo Repository, geocoder domain.Geocoder) *GeoEnricher {
	return NewGeoEnricher(repo, geocoder, testLogger(), observability.NewMetricsForTesting(), time.Second)
}

func TestGeoEnricher_EnrichState(t *testing.T) {
	repo := newFakeRepository()
	seedState(t, repo,
		domain.Station{Code: "A", Location: "Huntsville, AL"},
		domain.Station{Code: "B", Location: "Birmingham, AL"},
	)

	geocoder := &scriptedGeocoder{coords: map[string]*domain.Coordinates{
		"Huntsville, AL": {Lat: 34.73, Lon: -86.58},
		"Birmingham, AL": {Lat: 33.52, Lon: -86.81},
	}}

	result, err := newTestEnricher(repo, geocoder).EnrichState(context.Background(), "Alabama")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stations)
	assert.Equal(t, 2, result.Resolved)
	assert.Zero(t, result.Failed)

	// One transactional write for the whole pass.
	assert.Equal(t, 1, repo.saveCalls)
	st, err := repo.FindStation(context.Background(), "A", "AL")
	require.NoError(t, err)
	require.NotNil(t, st.Latitude)
	assert.Equal(t, 34.73, *st.Latitude)
	require.NotNil(t, st.Longitude)
	assert.Equal(t, -86.58, *st.Longitude)
}

func TestGeoEnricher_SkipsResolvedStations(t *testing.T) {
	repo := newFakeRepository()
	seedState(t, repo,
		domain.Station{Code: "A", Location: "Huntsville, AL", Latitude: float64Ptr(34.73), Longitude: float64Ptr(-86.58)},
		domain.Station{Code: "B", Location: "Birmingham, AL"},
	)

	geocoder := &scriptedGeocoder{coords: map[string]*domain.Coordinates{
		"Birmingham, AL": {Lat: 33.52, Lon: -86.81},
	}}

	result, err := newTestEnricher(repo, geocoder).EnrichState(context.Background(), "Alabama")
	require.NoError(t, err)

	// No lookup is issued for the already-resolved station.
	assert.Equal(t, []string{"Birmingham, AL"}, geocoder.calls)
	assert.Equal(t, 1, result.AlreadyResolved)
	assert.Equal(t, 1, result.Resolved)
}

func TestGeoEnricher_PartialCoordinatesAreRetried(t *testing.T) {
	repo := newFakeRepository()
	seedState(t, repo,
		domain.Station{Code: "A", Location: "Huntsville, AL", Latitude: float64Ptr(34.73)},
	)

	geocoder := &scriptedGeocoder{coords: map[string]*domain.Coordinates{
		"Huntsville, AL": {Lat: 34.73, Lon: -86.58},
	}}

	result, err := newTestEnricher(repo, geocoder).EnrichState(context.Background(), "Alabama")
	require.NoError(t, err)

	// Only a station with both coordinates counts as resolved.
	assert.Equal(t, []string{"Huntsville, AL"}, geocoder.calls)
	assert.Equal(t, 1, result.Resolved)
}

func TestGeoEnricher_FailureIsolation(t *testing.T) {
	repo := newFakeRepository()
	seedState(t, repo,
		domain.Station{Code: "A", Location: "Huntsville, AL"},
		domain.Station{Code: "B", Location: "Birmingham, AL"},
		domain.Station{Code: "C", Location: "Mobile, AL"},
	)

	geocoder := &scriptedGeocoder{
		coords: map[string]*domain.Coordinates{
			"Mobile, AL": {Lat: 30.69, Lon: -88.04},
			// Birmingham has no entry: a no-match response.
		},
		errs: map[string]error{
			"Huntsville, AL": fmt.Errorf("upstream timeout"),
		},
	}

	result, err := newTestEnricher(repo, geocoder).EnrichState(context.Background(), "Alabama")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.NoMatch)
	assert.Equal(t, 1, result.Resolved)

	st, err := repo.FindStation(context.Background(), "C", "AL")
	require.NoError(t, err)
	require.NotNil(t, st.Latitude)
	st, err = repo.FindStation(context.Background(), "A", "AL")
	require.NoError(t, err)
	assert.Nil(t, st.Latitude)
}

func TestGeoEnricher_UnknownState(t *testing.T) {
	repo := newFakeRepository()
	geocoder := &scriptedGeocoder{}

	_, err := newTestEnricher(repo, geocoder).EnrichState(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, geocoder.calls)
}

func TestGeoEnricher_NoUpdatesSkipsSave(t *testing.T) {
	repo := newFakeRepository()
	seedState(t, repo,
		domain.Station{Code: "A", Location: "Huntsville, AL", Latitude: float64Ptr(34.73), Longitude: float64Ptr(-86.58)},
	)

	result, err := newTestEnricher(repo, &scriptedGeocoder{}).EnrichState(context.Background(), "Alabama")
	require.NoError(t, err)

	assert.Equal(t, 1, result.AlreadyResolved)
	assert.Zero(t, repo.saveCalls)
}
