package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

const acceptGeoJSON = "application/geo+json"

// Client implements domain.WeatherSource using the National Weather Service API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NWS API client. NWS rejects requests without a
// User-Agent, so userAgent should identify the deployment.
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

// Point resolves a coordinate to its forecast URL and nearest city.
// A 404 means NWS has no grid point there and yields domain.ErrNotFound.
func (c *Client) Point(ctx context.Context, coord domain.Coordinate) (domain.PointMetadata, error) {
	var resp pointResponse
	if err := c.getJSON(ctx, "points", c.baseURL+"/points/"+coord.String(), &resp); err != nil {
		return domain.PointMetadata{}, err
	}
	if resp.Properties.Forecast == "" {
		return domain.PointMetadata{}, fmt.Errorf("point %s has no forecast URL: %w", coord, domain.ErrIncompleteData)
	}
	rel := resp.Properties.RelativeLocation.Properties
	return domain.PointMetadata{
		ForecastURL: resp.Properties.Forecast,
		City:        rel.City,
		State:       rel.State,
	}, nil
}

// Forecast fetches the ordered forecast periods from a point's forecast URL.
func (c *Client) Forecast(ctx context.Context, forecastURL string) ([]domain.ForecastPeriod, error) {
	var resp forecastResponse
	if err := c.getJSON(ctx, "forecast", forecastURL, &resp); err != nil {
		return nil, err
	}
	return resp.Properties.Periods, nil
}

// ActiveAlerts fetches alerts currently in effect at a coordinate.
func (c *Client) ActiveAlerts(ctx context.Context, coord domain.Coordinate) ([]domain.AlertRecord, error) {
	params := url.Values{"point": {coord.String()}}
	var resp alertsResponse
	if err := c.getJSON(ctx, "alerts", c.baseURL+"/alerts/active?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	alerts := make([]domain.AlertRecord, 0, len(resp.Features))
	for _, f := range resp.Features {
		alerts = append(alerts, f.Properties)
	}
	return alerts, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptGeoJSON)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("nws %s request: %v: %w", endpoint, err, domain.ErrTransientNetwork)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && endpoint == "points":
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "empty").Inc()
		return fmt.Errorf("nws has no grid point for %s: %w", req.URL.Path, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("nws request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("nws API error: %s status %d: %s: %w", endpoint, resp.StatusCode, body, domain.ErrTransientNetwork)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("decode nws %s response: %v: %w", endpoint, err, domain.ErrIncompleteData)
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

// NWS API response types. Periods and alert properties decode straight into
// domain types, whose JSON names follow the NWS wire format.

type pointResponse struct {
	Properties struct {
		Forecast         string `json:"forecast"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []domain.ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

type alertsResponse struct {
	Features []struct {
		Properties domain.AlertRecord `json:"properties"`
	} `json:"features"`
}
