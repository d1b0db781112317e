package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Alias tables: for each logical field, the spellings accepted in source
// data, in priority order. Lookup tries exact keys first, then the
// normalized key space (lowercased, trimmed, non-alphanumerics stripped),
// so "Avg Temp", "AvgTemp", and "average " all resolve to avg_temp.
var (
	aliasWeatherDoc = []string{"weather", "Weather", "w", "data"}
	aliasDateDoc    = []string{"date", "Date", "d"}
	aliasStationDoc = []string{"station", "Station", "s"}

	aliasPrecipitation = []string{"Precipitation"}
	aliasTemperature   = []string{"Temperature"}
	aliasWind          = []string{"Wind"}
	aliasAvgTemp       = []string{"Avg Temp", "AvgTemp", "Average", "Avg"}
	aliasMaxTemp       = []string{"Max Temp", "MaxTemp", "Max"}
	aliasMinTemp       = []string{"Min Temp", "MinTemp", "Min"}
	aliasWindDirection = []string{"Direction", "Dir"}
	aliasWindSpeed     = []string{"Speed", "WindSpeed", "Speed(mph)"}
	aliasDateFull      = []string{"Full", "Date", "DateFull"}
	aliasYear          = []string{"Year"}
	aliasMonth         = []string{"Month"}
	aliasWeekOf        = []string{"Week of", "WeekOf", "Week"}
	aliasCity          = []string{"City"}
	aliasCode          = []string{"Code", "StationCode"}
	aliasLocation      = []string{"Location"}
	aliasState         = []string{"State"}
)

// NormalizeRecord turns one raw record into a CanonicalRow. It is a pure
// function of its input; any failure is a MalformedRecordError.
func NormalizeRecord(raw json.RawMessage) (CanonicalRow, error) {
	var item any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&item); err != nil {
		return CanonicalRow{}, &MalformedRecordError{Reason: "not valid JSON", Err: err}
	}

	weather, date, station, err := splitRecord(item)
	if err != nil {
		return CanonicalRow{}, err
	}

	temp := subDocument(weather, aliasTemperature...)
	wind := subDocument(weather, aliasWind...)

	return CanonicalRow{
		Precipitation: coerceNumber(relaxedGet(weather, aliasPrecipitation...)),
		AvgTemp:       coerceNumber(relaxedGet(temp, aliasAvgTemp...)),
		MaxTemp:       coerceNumber(relaxedGet(temp, aliasMaxTemp...)),
		MinTemp:       coerceNumber(relaxedGet(temp, aliasMinTemp...)),
		WindDirection: coerceNumber(relaxedGet(wind, aliasWindDirection...)),
		WindSpeed:     coerceNumber(relaxedGet(wind, aliasWindSpeed...)),
		DateFull:      coerceString(relaxedGet(date, aliasDateFull...)),
		Year:          coerceNumber(relaxedGet(date, aliasYear...)),
		Month:         coerceNumber(relaxedGet(date, aliasMonth...)),
		WeekOf:        coerceNumber(relaxedGet(date, aliasWeekOf...)),
		City:          coerceString(relaxedGet(station, aliasCity...)),
		Code:          coerceString(relaxedGet(station, aliasCode...)),
		Location:      coerceString(relaxedGet(station, aliasLocation...)),
		State:         coerceString(relaxedGet(station, aliasState...)),
	}, nil
}

// splitRecord dispatches on the three accepted record shapes and decodes
// each sub-document into a mapping.
func splitRecord(item any) (weather, date, station map[string]any, err error) {
	switch t := item.(type) {
	case []any:
		if len(t) < 3 {
			return nil, nil, nil, &MalformedRecordError{
				Reason: fmt.Sprintf("sequence of %d elements, want 3", len(t)),
			}
		}
		if weather, err = decodeSubDocument(t[0], "weather"); err != nil {
			return nil, nil, nil, err
		}
		if date, err = decodeSubDocument(t[1], "date"); err != nil {
			return nil, nil, nil, err
		}
		if station, err = decodeSubDocument(t[2], "station"); err != nil {
			return nil, nil, nil, err
		}
		return weather, date, station, nil

	case map[string]any:
		if weather, err = decodeSubDocument(relaxedGet(t, aliasWeatherDoc...), "weather"); err != nil {
			return nil, nil, nil, err
		}
		if date, err = decodeSubDocument(relaxedGet(t, aliasDateDoc...), "date"); err != nil {
			return nil, nil, nil, err
		}
		if station, err = decodeSubDocument(relaxedGet(t, aliasStationDoc...), "station"); err != nil {
			return nil, nil, nil, err
		}
		return weather, date, station, nil

	default:
		// Last resort: the whole record is the weather sub-document.
		if weather, err = decodeSubDocument(item, "weather"); err != nil {
			return nil, nil, nil, err
		}
		return weather, map[string]any{}, map[string]any{}, nil
	}
}

// decodeSubDocument accepts a native mapping or a string/bytes value
// encoding a JSON object, and fails on anything else.
func decodeSubDocument(v any, name string) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case string:
		return decodeJSONObject([]byte(t), name)
	case []byte:
		return decodeJSONObject(t, name)
	case nil:
		return nil, &MalformedRecordError{Reason: name + " sub-document missing"}
	default:
		return nil, &MalformedRecordError{
			Reason: fmt.Sprintf("%s sub-document has unsupported type %T", name, v),
		}
	}
}

func decodeJSONObject(b []byte, name string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &MalformedRecordError{Reason: "undecodable " + name + " sub-document", Err: err}
	}
	return m, nil
}

// normalizeKey lowercases, trims, and strips non-alphanumeric runes.
func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(strings.ToLower(k)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// relaxedLookup tries the aliases as exact keys, then against the normalized
// key space. It reports presence even when the stored value is null, so a
// field explicitly set to null is "present and missing", not "absent".
func relaxedLookup(m map[string]any, aliases ...string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, a := range aliases {
		if v, ok := m[a]; ok {
			return v, true
		}
	}
	norm := make(map[string]any, len(m))
	for k, v := range m {
		norm[normalizeKey(k)] = v
	}
	for _, a := range aliases {
		if v, ok := norm[normalizeKey(a)]; ok {
			return v, true
		}
	}
	return nil, false
}

// relaxedGet is relaxedLookup without the presence flag.
func relaxedGet(m map[string]any, aliases ...string) any {
	v, _ := relaxedLookup(m, aliases...)
	return v
}

// subDocument returns a nested mapping field, or nil when the field is
// absent or not a mapping. Nested sub-documents are never string-decoded.
func subDocument(m map[string]any, aliases ...string) map[string]any {
	if sub, ok := relaxedGet(m, aliases...).(map[string]any); ok {
		return sub
	}
	return nil
}

// coerceNumber converts a raw value to a Number. Already-numeric values pass
// through with their kind preserved; strings have thousands separators
// stripped and are parsed as decimals; empty and unparseable strings are
// missing rather than errors.
func coerceNumber(v any) *Number {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		return parseNumber(string(t))
	case float64:
		return Float(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return nil
		}
		return parseNumber(s)
	default:
		return nil
	}
}

func parseNumber(s string) *Number {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f)
	}
	return nil
}

// coerceString renders a raw scalar as a string field; missing becomes "".
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
