// Package export writes canonical rows as a flat tabular file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
)

// Columns is the canonical export header, in fixed order.
var Columns = []string{
	"precipitation", "avg_temp", "max_temp", "min_temp",
	"wind_direction", "wind_speed",
	"date_full", "year", "month", "week_of",
	"city", "code", "location", "state",
}

// WriteCSV writes rows with a header. Missing values are empty fields;
// zeros are preserved as "0".
func WriteCSV(w io.Writer, rows []domain.CanonicalRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path, creating or truncating it.
func WriteCSVFile(path string, rows []domain.CanonicalRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func record(row domain.CanonicalRow) []string {
	return []string{
		row.Precipitation.String(),
		row.AvgTemp.String(),
		row.MaxTemp.String(),
		row.MinTemp.String(),
		row.WindDirection.String(),
		row.WindSpeed.String(),
		row.DateFull,
		row.Year.String(),
		row.Month.String(),
		row.WeekOf.String(),
		row.City,
		row.Code,
		row.Location,
		row.State,
	}
}
