package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Geocode(t *testing.T) {
	var gotUserAgent, gotQuery, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotUserAgent = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"lat": "34.7304", "lon": "-86.5861", "display_name": "Huntsville, Madison County, Alabama"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "weather-db-pipeline-test", time.Second, testLogger())
	coords, err := client.Geocode(context.Background(), "Huntsville, AL")
	require.NoError(t, err)

	require.NotNil(t, coords)
	assert.Equal(t, 34.7304, coords.Lat)
	assert.Equal(t, -86.5861, coords.Lon)
	assert.Equal(t, "weather-db-pipeline-test", gotUserAgent)
	assert.Equal(t, "Huntsville, AL", gotQuery)
	assert.Equal(t, "1", gotLimit)
}

func TestClient_Geocode_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second, testLogger())
	coords, err := client.Geocode(context.Background(), "Nowhere, XX")
	require.NoError(t, err)
	assert.Nil(t, coords)
}

func TestClient_Geocode_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second, testLogger())
	_, err := client.Geocode(context.Background(), "Huntsville, AL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_Geocode_BadCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"lat": "north-ish", "lon": "-86.5861"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Second, testLogger())
	_, err := client.Geocode(context.Background(), "Huntsville, AL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse latitude")
}

func TestClient_Geocode_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, "test", time.Minute, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Geocode(ctx, "Huntsville, AL")
	require.Error(t, err)
}
