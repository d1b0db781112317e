package domain

import (
	"strconv"
	"strings"
	"time"
)

// Number is a nullable numeric value that remembers whether its source was
// integral, so exports can tell 72 from 72.0 and both from missing.
type Number struct {
	Value    float64
	Integral bool
}

// Int returns a Number holding an integral value.
func Int(v int64) *Number {
	return &Number{Value: float64(v), Integral: true}
}

// Float returns a Number holding a fractional value.
func Float(v float64) *Number {
	return &Number{Value: v}
}

// String renders the number the way it arrived: integral values without a
// decimal point. A nil Number renders as the empty string.
func (n *Number) String() string {
	if n == nil {
		return ""
	}
	if n.Integral {
		return strconv.FormatInt(int64(n.Value), 10)
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Float64 returns the value as a nullable float for relational storage.
func (n *Number) Float64() *float64 {
	if n == nil {
		return nil
	}
	v := n.Value
	return &v
}

// Int64 truncates the value to a nullable integer for relational storage.
func (n *Number) Int64() *int64 {
	if n == nil {
		return nil
	}
	v := int64(n.Value)
	return &v
}

// CanonicalRow is the fixed 14-field flattened representation of one
// observation after normalization. Numeric fields are nil when missing from
// the source; string fields are empty when missing.
type CanonicalRow struct {
	Precipitation *Number
	AvgTemp       *Number
	MaxTemp       *Number
	MinTemp       *Number
	WindDirection *Number
	WindSpeed     *Number
	DateFull      string
	Year          *Number
	Month         *Number
	WeekOf        *Number
	City          string
	Code          string
	Location      string
	State         string
}

// State is a normalized US state keyed by its short canonical code.
type State struct {
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Station is a weather station identified by the composite key
// (code, state_code). Coordinates stay nil until geocoding enrichment.
type Station struct {
	Code      string    `db:"code"`
	StateCode string    `db:"state_code"`
	City      string    `db:"city"`
	Location  string    `db:"location"`
	Latitude  *float64  `db:"latitude"`
	Longitude *float64  `db:"longitude"`
	CreatedAt time.Time `db:"created_at"`
}

// WeatherRecord is one persisted observation. StationCode and StateCode are a
// value-level reference to a Station's composite key.
type WeatherRecord struct {
	ID            int64     `db:"id"`
	Precipitation *float64  `db:"precipitation"`
	AvgTemp       *float64  `db:"avg_temp"`
	MaxTemp       *float64  `db:"max_temp"`
	MinTemp       *float64  `db:"min_temp"`
	WindDirection *float64  `db:"wind_direction"`
	WindSpeed     *float64  `db:"wind_speed"`
	Date          time.Time `db:"date"`
	Year          *int64    `db:"year"`
	Month         *int64    `db:"month"`
	WeekOf        *int64    `db:"week_of"`
	StationCode   string    `db:"station_code"`
	StateCode     string    `db:"state_code"`
	CreatedAt     time.Time `db:"created_at"`
}

// dateLayouts are the calendar formats accepted for date_full.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// ParseDate parses a date_full value. Date is required and non-null on every
// weather record, so an empty or unparseable value is a RequiredFieldError.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &RequiredFieldError{Field: "date_full", Value: s}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &RequiredFieldError{Field: "date_full", Value: s}
}
