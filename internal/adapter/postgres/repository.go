// Package postgres implements pipeline.Repository on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

// Repository is a Postgres-backed implementation of pipeline.Repository.
// The pipeline is a single sequential writer, so the pool is pinned to one
// connection; commit points are the transactions below.
type Repository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the database and verifies the connection.
func Open(databaseURL string, logger *slog.Logger) (*Repository, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection established")
	return &Repository{db: db, logger: logger}, nil
}

// Close releases the connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateSchema applies the embedded DDL. All statements are idempotent.
func (r *Repository) CreateSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	r.logger.Info("database schema ready")
	return nil
}

// UpsertState inserts a state unless the name exists. A code held by a
// different state surfaces as a domain.DuplicateKeyError.
func (r *Repository) UpsertState(ctx context.Context, s domain.State) (bool, error) {
	var existing domain.State

	err := r.db.GetContext(ctx, &existing,
		`SELECT code, name, created_at FROM states WHERE name = $1`, s.Name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("query state by name: %w", err)
	}

	err = r.db.GetContext(ctx, &existing,
		`SELECT code, name, created_at FROM states WHERE code = $1`, s.Code)
	if err == nil {
		return false, &domain.DuplicateKeyError{Entity: "state", Key: s.Code, Existing: existing.Name}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("query state by code: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO states (code, name, created_at) VALUES ($1, $2, $3)`,
		s.Code, s.Name, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, &domain.DuplicateKeyError{Entity: "state", Key: s.Code}
		}
		return false, fmt.Errorf("insert state: %w", err)
	}
	return true, nil
}

// UpsertStation inserts a station unless its composite key exists.
func (r *Repository) UpsertStation(ctx context.Context, st domain.Station) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (code, state_code, city, location, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code, state_code) DO NOTHING`,
		st.Code, st.StateCode, st.City, st.Location, st.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert station: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert station: %w", err)
	}
	return n > 0, nil
}

// InsertWeatherBatch appends records in one transaction via a prepared
// statement, committing before return so the batch is durable.
func (r *Repository) InsertWeatherBatch(ctx context.Context, records []domain.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather_records (
			precipitation, avg_temp, max_temp, min_temp,
			wind_direction, wind_speed,
			date, year, month, week_of,
			station_code, state_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Precipitation, rec.AvgTemp, rec.MaxTemp, rec.MinTemp,
			rec.WindDirection, rec.WindSpeed,
			rec.Date, rec.Year, rec.Month, rec.WeekOf,
			rec.StationCode, rec.StateCode, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert weather record %s/%s: %w", rec.StationCode, rec.StateCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// FindStation returns the station with the given composite key, or nil.
func (r *Repository) FindStation(ctx context.Context, code, stateCode string) (*domain.Station, error) {
	var st domain.Station
	err := r.db.GetContext(ctx, &st, `
		SELECT code, state_code, city, location, latitude, longitude, created_at
		FROM stations WHERE code = $1 AND state_code = $2`, code, stateCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query station: %w", err)
	}
	return &st, nil
}

// FindStateByName returns the state with the given full name, or nil.
func (r *Repository) FindStateByName(ctx context.Context, name string) (*domain.State, error) {
	var s domain.State
	err := r.db.GetContext(ctx, &s,
		`SELECT code, name, created_at FROM states WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	return &s, nil
}

// StationsForState lists all stations under a state code.
func (r *Repository) StationsForState(ctx context.Context, stateCode string) ([]domain.Station, error) {
	var stations []domain.Station
	err := r.db.SelectContext(ctx, &stations, `
		SELECT code, state_code, city, location, latitude, longitude, created_at
		FROM stations WHERE state_code = $1 ORDER BY code`, stateCode)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return stations, nil
}

// SaveStationCoordinates writes coordinates for the given stations in one
// transaction; any failure rolls back the whole pass.
func (r *Repository) SaveStationCoordinates(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin coordinates transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, st := range stations {
		_, err := tx.ExecContext(ctx, `
			UPDATE stations SET latitude = $1, longitude = $2
			WHERE code = $3 AND state_code = $4`,
			st.Latitude, st.Longitude, st.Code, st.StateCode)
		if err != nil {
			return fmt.Errorf("update station %s/%s: %w", st.Code, st.StateCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit coordinates: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
