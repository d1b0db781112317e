package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
	"github.com/couchcryptid/weather-db-pipeline/internal/observability"
)

// Repository is the persistence surface the loader and enricher need.
// Implementations are used by a single sequential writer; no internal
// locking is required for correctness.
type Repository interface {
	// UpsertState inserts a state unless one with the same name exists.
	// It returns true when a row was inserted, false when the name was
	// already present, and a domain.DuplicateKeyError when the code is
	// held by a different state.
	UpsertState(ctx context.Context, s domain.State) (bool, error)

	// UpsertStation inserts a station unless its composite key
	// (code, state_code) exists. Returns true when a row was inserted.
	UpsertStation(ctx context.Context, st domain.Station) (bool, error)

	// InsertWeatherBatch appends a batch of weather records in one
	// transaction, committed before return.
	InsertWeatherBatch(ctx context.Context, records []domain.WeatherRecord) error

	// FindStation returns the station with the given composite key, or nil
	// when absent.
	FindStation(ctx context.Context, code, stateCode string) (*domain.Station, error)

	// FindStateByName returns the state with the given full name, or nil
	// when absent.
	FindStateByName(ctx context.Context, name string) (*domain.State, error)

	// StationsForState lists all stations under a state code.
	StationsForState(ctx context.Context, stateCode string) ([]domain.Station, error)

	// SaveStationCoordinates writes coordinates for the given stations in
	// one transaction; a failure rolls back every write in the pass.
	SaveStationCoordinates(ctx context.Context, stations []domain.Station) error
}

// Result summarizes one load run. Every skipped or failed item is counted;
// nothing is dropped silently.
type Result struct {
	RowsNormalized   int
	RowsMalformed    int
	RowsSkipped      int
	StatesInserted   int
	StatesSkipped    int
	StationsInserted int
	StationsSkipped  int
	RecordsLoaded    int
	Collisions       int
}

// Loader materializes canonical rows into States, Stations, and
// WeatherRecords, in that dependency order.
type Loader struct {
	repo      Repository
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	batchSize int
}

// NewLoader creates a Loader writing through repo in batches of batchSize
// weather records.
func NewLoader(repo Repository, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Loader {
	return &Loader{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		batchSize: batchSize,
	}
}

// SetClock swaps the time source used for row timestamps. Tests inject a
// fake for deterministic output.
func (l *Loader) SetClock(c clockwork.Clock) {
	if c == nil {
		l.clock = clockwork.NewRealClock()
		return
	}
	l.clock = c
}

// NormalizeRows converts raw records to canonical rows, isolating malformed
// records: each failure is logged and counted, and processing continues.
func (l *Loader) NormalizeRows(raws []json.RawMessage, res *Result) []domain.CanonicalRow {
	rows := make([]domain.CanonicalRow, 0, len(raws))
	for i, raw := range raws {
		row, err := domain.NormalizeRecord(raw)
		if err != nil {
			l.logger.Warn("skipping malformed record", "index", i, "error", err)
			l.metrics.RowsMalformed.Inc()
			res.RowsMalformed++
			continue
		}
		rows = append(rows, row)
	}
	l.metrics.RowsNormalized.Add(float64(len(rows)))
	res.RowsNormalized = len(rows)
	return rows
}

// Load persists states, then stations, then weather records. Each phase is
// fully committed before the next begins; a mid-run failure leaves earlier
// phases durable. The state and station phases are idempotent across reruns;
// weather records have no natural key and a rerun appends them again.
func (l *Loader) Load(ctx context.Context, rows []domain.CanonicalRow, res domain.Resolution, result *Result) error {
	for _, c := range res.Collisions {
		l.logger.Warn("state code collided with a full name, kept the full-name mapping",
			"removed", c.Removed, "code", c.Code, "state", c.Name)
		result.Collisions++
	}

	if err := l.loadStates(ctx, rows, res, result); err != nil {
		return err
	}
	stationStates, err := l.loadStations(ctx, rows, res, result)
	if err != nil {
		return err
	}
	return l.loadRecords(ctx, rows, stationStates, result)
}

// loadStates inserts one State per distinct full name, in first-seen order.
// Values that already look like codes are skipped as candidates; code
// conflicts are skipped and reported, never overwritten.
func (l *Loader) loadStates(ctx context.Context, rows []domain.CanonicalRow, res domain.Resolution, result *Result) error {
	seen := make(map[string]bool)
	for _, row := range rows {
		name := row.State
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if domain.IsStateCode(name) {
			l.logger.Debug("skipping abbreviated state value", "state", name)
			continue
		}

		code, ok := res.Codes[name]
		if !ok {
			code = domain.FallbackCode(name)
			l.logger.Warn("no location-derived code for state, using fallback",
				"state", name, "code", code)
		}

		created, err := l.repo.UpsertState(ctx, domain.State{
			Code:      code,
			Name:      name,
			CreatedAt: l.clock.Now().UTC(),
		})
		var dup *domain.DuplicateKeyError
		if errors.As(err, &dup) {
			l.logger.Warn("skipping state with duplicate code",
				"state", name, "code", code, "held_by", dup.Existing)
			l.metrics.StatesSkipped.Inc()
			result.StatesSkipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("upsert state %q: %w", name, err)
		}
		if created {
			l.metrics.StatesInserted.Inc()
			result.StatesInserted++
		} else {
			l.metrics.StatesSkipped.Inc()
			result.StatesSkipped++
		}
	}
	return nil
}

// loadStations inserts one Station per distinct (city, code, location, state)
// combination and returns the station-code to state-code mapping the record
// phase resolves against.
func (l *Loader) loadStations(ctx context.Context, rows []domain.CanonicalRow, res domain.Resolution, result *Result) (map[string]string, error) {
	type candidate struct{ city, code, location, state string }
	seen := make(map[candidate]bool)
	stationStates := make(map[string]string)

	for _, row := range rows {
		c := candidate{row.City, row.Code, row.Location, row.State}
		if seen[c] {
			continue
		}
		seen[c] = true

		if row.Code == "" || row.State == "" {
			l.logger.Warn("station candidate missing code or state, skipping",
				"city", row.City, "code", row.Code, "state", row.State)
			l.metrics.StationsSkipped.Inc()
			result.StationsSkipped++
			continue
		}

		stateCode := res.CodeFor(row.State)
		created, err := l.repo.UpsertStation(ctx, domain.Station{
			Code:      row.Code,
			StateCode: stateCode,
			City:      row.City,
			Location:  row.Location,
			CreatedAt: l.clock.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert station %s/%s: %w", row.Code, stateCode, err)
		}
		if created {
			l.metrics.StationsInserted.Inc()
			result.StationsInserted++
		} else {
			l.metrics.StationsSkipped.Inc()
			result.StationsSkipped++
		}
		stationStates[row.Code] = stateCode
	}
	return stationStates, nil
}

// loadRecords appends weather records in fixed-size batches, one commit per
// batch, in source order. An unparseable date is fatal to the run at that
// batch; rows without a loadable station are skipped and counted.
func (l *Loader) loadRecords(ctx context.Context, rows []domain.CanonicalRow, stationStates map[string]string, result *Result) error {
	batch := make([]domain.WeatherRecord, 0, l.batchSize)

	for i, row := range rows {
		stateCode, ok := stationStates[row.Code]
		if !ok {
			l.logger.Warn("row has no loadable station, skipping",
				"index", i, "code", row.Code, "state", row.State)
			l.metrics.RowsSkipped.Inc()
			result.RowsSkipped++
			continue
		}

		date, err := domain.ParseDate(row.DateFull)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}

		batch = append(batch, domain.WeatherRecord{
			Precipitation: row.Precipitation.Float64(),
			AvgTemp:       row.AvgTemp.Float64(),
			MaxTemp:       row.MaxTemp.Float64(),
			MinTemp:       row.MinTemp.Float64(),
			WindDirection: row.WindDirection.Float64(),
			WindSpeed:     row.WindSpeed.Float64(),
			Date:          date,
			Year:          row.Year.Int64(),
			Month:         row.Month.Int64(),
			WeekOf:        row.WeekOf.Int64(),
			StationCode:   row.Code,
			StateCode:     stateCode,
			CreatedAt:     l.clock.Now().UTC(),
		})

		if len(batch) >= l.batchSize {
			if err := l.flushBatch(ctx, batch, result); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		return l.flushBatch(ctx, batch, result)
	}
	return nil
}

func (l *Loader) flushBatch(ctx context.Context, batch []domain.WeatherRecord, result *Result) error {
	start := time.Now()
	if err := l.repo.InsertWeatherBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert weather batch of %d: %w", len(batch), err)
	}
	l.metrics.RecordBatchSize.Observe(float64(len(batch)))
	l.metrics.RecordBatchDuration.Observe(time.Since(start).Seconds())
	l.metrics.RecordsLoaded.Add(float64(len(batch)))
	result.RecordsLoaded += len(batch)
	l.logger.Debug("weather record batch committed", "size", len(batch))
	return nil
}
