package domain

import "context"

// GeocodeResult is a single geocoder match. A zero DisplayName means no match.
type GeocodeResult struct {
	Coordinate  Coordinate
	DisplayName string // verbose provider name, not yet shortened
}

// Geocoder turns search text into coordinates. An empty result with a nil
// error means nothing matched.
type Geocoder interface {
	// SearchText geocodes a free-text query.
	SearchText(ctx context.Context, query string) (GeocodeResult, error)

	// SearchPostalCode geocodes a US postal code.
	SearchPostalCode(ctx context.Context, zip string) (GeocodeResult, error)
}

// PointMetadata is the subset of an NWS point lookup the dashboard uses.
type PointMetadata struct {
	ForecastURL string
	City        string
	State       string
}

// WeatherSource is the NWS API surface.
type WeatherSource interface {
	Point(ctx context.Context, c Coordinate) (PointMetadata, error)
	Forecast(ctx context.Context, forecastURL string) ([]ForecastPeriod, error)
	ActiveAlerts(ctx context.Context, c Coordinate) ([]AlertRecord, error)
}
