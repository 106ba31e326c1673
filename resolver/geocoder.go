package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoGeocodeResult means the geocoder answered but found nothing.
var ErrNoGeocodeResult = errors.New("no geocode result")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder turns free text into at most one coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Point, error)
}

// nominatimResult is one entry of a Nominatim search response.
type nominatimResult struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// NominatimGeocoder queries an OpenStreetMap Nominatim search endpoint.
type NominatimGeocoder struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	countryCodes string
}

// NewNominatimGeocoder creates a geocoder for baseURL, for example
// "https://nominatim.openstreetmap.org/search".
func NewNominatimGeocoder(baseURL, userAgent, countryCodes string, timeout time.Duration) *NominatimGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if userAgent == "" {
		userAgent = "gtfs-journey/1.0"
	}
	return &NominatimGeocoder{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    userAgent,
		countryCodes: countryCodes,
	}
}

// Geocode returns the best match for query.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Point, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("limit", "1")
	if g.countryCodes != "" {
		params.Add("countrycodes", g.countryCodes)
	}
	fullURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())

	// Nominatim rejects requests without a User-Agent
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Point{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("geocode %q: HTTP %d", query, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Point{}, fmt.Errorf("read geocode response: %w", err)
	}
	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return Point{}, fmt.Errorf("parse geocode response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoGeocodeResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse geocode lat %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse geocode lon %q: %w", results[0].Lon, err)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// QualifyQuery appends qualifier to query unless the query already names
// one of the regional tokens.
func QualifyQuery(query, qualifier string, tokens []string) string {
	query = strings.TrimSpace(query)
	if qualifier == "" {
		return query
	}
	if len(tokens) == 0 {
		tokens = RegionalTokens(qualifier)
	}
	padded := " " + Normalize(query) + " "
	for _, tok := range tokens {
		if tok = Normalize(tok); tok != "" && strings.Contains(padded, " "+tok+" ") {
			return query
		}
	}
	return fmt.Sprintf("%s, %s", query, qualifier)
}

// RegionalTokens splits a qualifier such as "Oshawa, Ontario, Canada" into
// its lower-case parts.
func RegionalTokens(qualifier string) []string {
	var out []string
	for _, part := range strings.Split(qualifier, ",") {
		if p := Normalize(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
