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
	"time"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

// Client implements domain.Geocoder using the Nominatim search API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Nominatim geocoding client.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		logger:    logger,
		metrics:   metrics,
	}
}

// SearchText geocodes a free-text place query.
func (c *Client) SearchText(ctx context.Context, query string) (domain.GeocodeResult, error) {
	params := url.Values{
		"format": {"json"},
		"q":      {query},
		"limit":  {"1"},
	}
	return c.search(ctx, params, "search")
}

// SearchPostalCode geocodes a US ZIP code.
func (c *Client) SearchPostalCode(ctx context.Context, zip string) (domain.GeocodeResult, error) {
	params := url.Values{
		"format":     {"json"},
		"postalcode": {zip},
		"country":    {"USA"},
		"limit":      {"1"},
	}
	return c.search(ctx, params, "postalcode")
}

func (c *Client) search(ctx context.Context, params url.Values, endpoint string) (domain.GeocodeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return domain.GeocodeResult{}, fmt.Errorf("%s geocode request: %v: %w", endpoint, err, domain.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodeResult{}, fmt.Errorf("nominatim API error: status %d: %s: %w", resp.StatusCode, body, domain.ErrTransientNetwork)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return domain.GeocodeResult{}, fmt.Errorf("decode %s response: %v: %w", endpoint, err, domain.ErrIncompleteData)
	}

	if len(places) == 0 {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "empty").Inc()
		return domain.GeocodeResult{}, nil
	}

	p := places[0]
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lon, errLon := strconv.ParseFloat(p.Lon, 64)
	if errLat != nil || errLon != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return domain.GeocodeResult{}, fmt.Errorf("nominatim returned unparseable coordinate %q,%q: %w", p.Lat, p.Lon, domain.ErrIncompleteData)
	}

	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
	c.logger.Debug("geocoded", "endpoint", endpoint, "display_name", p.DisplayName)
	return domain.GeocodeResult{
		Coordinate:  domain.Coordinate{Lat: lat, Lon: lon},
		DisplayName: p.DisplayName,
	}, nil
}

// Nominatim API response types.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
