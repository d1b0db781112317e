package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_JSONArray(t *testing.T) {
	in := `[
		[{"Precipitation": 1}, {"Full": "2016-01-03"}, {"Code": "A"}],
		{"weather": {}, "date": {}, "station": {}}
	]`

	records, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `[{"Precipitation": 1}, {"Full": "2016-01-03"}, {"Code": "A"}]`, string(records[0]))
	assert.JSONEq(t, `{"weather": {}, "date": {}, "station": {}}`, string(records[1]))
}

func TestRead_NDJSON(t *testing.T) {
	in := "{\"weather\": {}}\n\n   \n{\"weather\": {\"Precipitation\": 2}}\n"

	records, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"weather": {"Precipitation": 2}}`, string(records[1]))
}

func TestRead_LeadingWhitespaceStillDetectsArray(t *testing.T) {
	records, err := Read(strings.NewReader("\n  \t[{\"a\": 1}]"))
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRead_Empty(t *testing.T) {
	records, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_InvalidArray(t *testing.T) {
	_, err := Read(strings.NewReader(`[{"a": 1}`))
	require.Error(t, err)
}

func TestReadArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"weather": {}}]`), 0o644))

	records, err := ReadArchive(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = ReadArchive(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
