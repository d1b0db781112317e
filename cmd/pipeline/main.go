package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/couchcryptid/weather-db-pipeline/internal/adapter/httpserver"
	"github.com/couchcryptid/weather-db-pipeline/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-db-pipeline/internal/adapter/postgres"
	"github.com/couchcryptid/weather-db-pipeline/internal/config"
	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/ingest"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
	"github.com/couchcryptid/weather-db-pipeline/internal/pipeline"
)

// runState tracks readiness for the optional HTTP listener.
type runState struct {
	ready atomic.Bool
}

func (r *runState) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("pipeline has not finished preparing the schema yet")
	}
	return nil
}

func main() {
	input := flag.String("input", "", "Path to the raw observation archive (overrides INPUT_PATH)")
	batchSize := flag.Int("batch-size", 0, "Weather records per insert batch (overrides BATCH_SIZE)")
	geocodeStates := flag.String("geocode-states", "",
		"Comma-separated full state names to geocode after loading, e.g. \"Alabama,Texas\"")
	skipLoad := flag.Bool("skip-load", false, "Skip the load phases and only run geocoding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.InputPath = *input
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := postgres.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	state := &runState{}
	if cfg.HTTPAddr != "" {
		srv := httpserver.NewServer(cfg.HTTPAddr, state, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	if err := repo.CreateSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	state.ready.Store(true)

	metrics.PipelineRunning.Set(1)
	defer metrics.PipelineRunning.Set(0)

	loader := pipeline.NewLoader(repo, logger, metrics, cfg.BatchSize)
	result := &pipeline.Result{}

	if !*skipLoad {
		if err := runLoad(ctx, cfg, loader, result, logger); err != nil {
			logger.Error("load failed", "error", err)
			os.Exit(1)
		}
	}

	if *geocodeStates != "" {
		if err := runGeocoding(ctx, cfg, repo, metrics, logger, *geocodeStates); err != nil {
			logger.Error("geocoding failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("pipeline run complete",
		"rows_normalized", result.RowsNormalized,
		"rows_malformed", result.RowsMalformed,
		"rows_skipped", result.RowsSkipped,
		"states_inserted", result.StatesInserted,
		"states_skipped", result.StatesSkipped,
		"stations_inserted", result.StationsInserted,
		"stations_skipped", result.StationsSkipped,
		"records_loaded", result.RecordsLoaded,
		"state_code_collisions", result.Collisions,
	)
}

func runLoad(ctx context.Context, cfg *config.Config, loader *pipeline.Loader, result *pipeline.Result, logger *slog.Logger) error {
	logger.Info("reading archive", "path", cfg.InputPath)
	raws, err := ingest.ReadArchive(cfg.InputPath)
	if err != nil {
		return err
	}
	logger.Info("archive read", "records", len(raws))

	rows := loader.NormalizeRows(raws, result)
	res := domain.ResolveStateCodes(rows)
	logger.Info("state codes resolved", "states", len(res.Codes), "collisions", len(res.Collisions))

	return loader.Load(ctx, rows, res, result)
}

func runGeocoding(ctx context.Context, cfg *config.Config, repo *postgres.Repository, metrics *observability.Metrics, logger *slog.Logger, states string) error {
	client := nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger)
	geocoder, err := nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
	if err != nil {
		return err
	}

	enricher := pipeline.NewGeoEnricher(repo, geocoder, logger, metrics, cfg.GeocoderTimeout)
	for _, name := range strings.Split(states, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := enricher.EnrichState(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
