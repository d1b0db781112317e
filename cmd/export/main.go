package main

import (
	"flag"
	"os"

	"github.com/couchcryptid/weather-db-pipeline/internal/config"
	"github.com/couchcryptid/weather-db-pipeline/internal/export"
	"github.com/couchcryptid/weather-db-pipeline/internal/ingest"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
	"github.com/couchcryptid/weather-db-pipeline/internal/pipeline"
)

func main() {
	input := flag.String("input", "", "Path to the raw observation archive (overrides INPUT_PATH)")
	output := flag.String("output", "data/weather_parsed.csv", "Path for the flattened CSV")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.InputPath = *input
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	raws, err := ingest.ReadArchive(cfg.InputPath)
	if err != nil {
		logger.Error("failed to read archive", "error", err)
		os.Exit(1)
	}

	loader := pipeline.NewLoader(nil, logger, metrics, cfg.BatchSize)
	result := &pipeline.Result{}
	rows := loader.NormalizeRows(raws, result)

	if err := export.WriteCSVFile(*output, rows); err != nil {
		logger.Error("failed to write csv", "error", err)
		os.Exit(1)
	}

	logger.Info("csv export complete",
		"path", *output,
		"rows_written", len(rows),
		"rows_malformed", result.RowsMalformed,
	)
}
