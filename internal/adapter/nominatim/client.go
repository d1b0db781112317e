// Package nominatim implements domain.Geocoder against a
// Nominatim-compatible search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-db-pipeline/internal/domain"
)

// Client issues forward geocoding lookups over HTTP. Calls are sequential;
// the per-call deadline comes from the caller's context, with the client
// timeout as a backstop.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a geocoding client. The Nominatim usage policy requires
// an identifying User-Agent, so userAgent must be non-empty.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Geocode resolves a free-text location to coordinates. A nil result with a
// nil error means no match.
func (c *Client) Geocode(ctx context.Context, location string) (*domain.Coordinates, error) {
	params := url.Values{
		"q":      {location},
		"format": {"json"},
		"limit":  {"1"},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoding API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	// Nominatim serializes coordinates as strings.
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}

	return &domain.Coordinates{Lat: lat, Lon: lon}, nil
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
