package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

// GeoEnricher fills missing station coordinates one state at a time.
// Lookups are issued sequentially with a bounded per-call timeout; a single
// failure never aborts the pass.
type GeoEnricher struct {
	repo     Repository
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

// NewGeoEnricher creates a GeoEnricher with the given per-call timeout.
func NewGeoEnricher(repo Repository, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics, timeout time.Duration) *GeoEnricher {
	return &GeoEnricher{
		repo:     repo,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// EnrichResult summarizes one per-state enrichment pass.
type EnrichResult struct {
	Stations        int
	Resolved        int
	AlreadyResolved int
	NoMatch         int
	Failed          int
}

// EnrichState geocodes every station under the named state that has no
// coordinates yet. Stations already carrying coordinates are skipped without
// a lookup. All coordinate writes for the pass commit together at the end.
func (g *GeoEnricher) EnrichState(ctx context.Context, stateName string) (*EnrichResult, error) {
	state, err := g.repo.FindStateByName(ctx, stateName)
	if err != nil {
		return nil, fmt.Errorf("find state %q: %w", stateName, err)
	}
	if state == nil {
		return nil, fmt.Errorf("state %q not found", stateName)
	}

	stations, err := g.repo.StationsForState(ctx, state.Code)
	if err != nil {
		return nil, fmt.Errorf("list stations for %s: %w", state.Code, err)
	}

	g.logger.Info("geocoding stations", "state", stateName, "stations", len(stations))

	result := &EnrichResult{Stations: len(stations)}
	var updated []domain.Station

	for _, st := range stations {
		if st.Latitude != nil && st.Longitude != nil {
			g.logger.Debug("station already has coordinates, skipping", "station", st.Code)
			result.AlreadyResolved++
			continue
		}

		coords, err := g.lookup(ctx, st.Location)
		if err != nil {
			g.logger.Warn("geocoding failed, station left unresolved",
				"station", st.Code, "location", st.Location, "error", err)
			g.metrics.GeocodeRequests.WithLabelValues("error").Inc()
			result.Failed++
			continue
		}
		if coords == nil {
			g.logger.Info("no geocoding match", "station", st.Code, "location", st.Location)
			g.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
			result.NoMatch++
			continue
		}

		g.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		st.Latitude = &coords.Lat
		st.Longitude = &coords.Lon
		updated = append(updated, st)
		result.Resolved++
		g.logger.Debug("geocoded station",
			"station", st.Code, "location", st.Location, "lat", coords.Lat, "lon", coords.Lon)
	}

	if len(updated) > 0 {
		if err := g.repo.SaveStationCoordinates(ctx, updated); err != nil {
			return result, fmt.Errorf("save coordinates for %q: %w", stateName, err)
		}
	}

	resolvedTotal := result.AlreadyResolved + result.Resolved
	completion := 0.0
	if result.Stations > 0 {
		completion = float64(resolvedTotal) / float64(result.Stations) * 100
	}
	g.logger.Info("geocoding pass complete",
		"state", stateName,
		"stations", result.Stations,
		"resolved", result.Resolved,
		"already_resolved", result.AlreadyResolved,
		"no_match", result.NoMatch,
		"failed", result.Failed,
		"completion_pct", fmt.Sprintf("%.2f", completion),
	)
	return result, nil
}

func (g *GeoEnricher) lookup(ctx context.Context, location string) (*domain.Coordinates, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	coords, err := g.geocoder.Geocode(callCtx, location)
	g.metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	return coords, err
}
