// Package location turns search text, postal codes, and device fixes into
// resolved dashboard locations.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

// Resolver resolves user input to a domain.ResolvedLocation. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	geocoder domain.Geocoder
	weather  domain.WeatherSource
	logger   *slog.Logger
}

// NewResolver creates a Resolver. Text search goes through geocoder;
// coordinate lookups use the NWS point metadata from weather.
func NewResolver(geocoder domain.Geocoder, weather domain.WeatherSource, logger *slog.Logger) *Resolver {
	return &Resolver{geocoder: geocoder, weather: weather, logger: logger}
}

// ResolveByText geocodes a free-text query or a 5-digit US postal code.
func (r *Resolver) ResolveByText(ctx context.Context, query string) (domain.ResolvedLocation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ResolvedLocation{}, fmt.Errorf("empty location query: %w", domain.ErrInvalidInput)
	}

	var (
		result domain.GeocodeResult
		err    error
	)
	if domain.IsPostalCode(query) {
		result, err = r.geocoder.SearchPostalCode(ctx, query)
	} else {
		result, err = r.geocoder.SearchText(ctx, query)
	}
	if err != nil {
		return domain.ResolvedLocation{}, err
	}
	if result.DisplayName == "" {
		return domain.ResolvedLocation{}, fmt.Errorf("no match for %q: %w", query, domain.ErrNotFound)
	}
	if err := result.Coordinate.Validate(); err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("geocoder result for %q: %v: %w", query, err, domain.ErrIncompleteData)
	}

	return domain.ResolvedLocation{
		Coordinate:  result.Coordinate,
		DisplayName: domain.ShortDisplayName(result.DisplayName),
	}, nil
}

// ResolveByCoordinate names a coordinate "city, state" from the nearest
// NWS relative location.
func (r *Resolver) ResolveByCoordinate(ctx context.Context, c domain.Coordinate) (domain.ResolvedLocation, error) {
	if err := c.Validate(); err != nil {
		return domain.ResolvedLocation{}, err
	}

	meta, err := r.weather.Point(ctx, c)
	if err != nil {
		return domain.ResolvedLocation{}, err
	}
	name := domain.CityRegion(meta.City, meta.State)
	if name == "" {
		return domain.ResolvedLocation{}, fmt.Errorf("no named place near %s: %w", c, domain.ErrNotFound)
	}
	return domain.ResolvedLocation{Coordinate: c, DisplayName: name}, nil
}

// DeviceFix is the single outcome of a device geolocation request: either a
// coordinate or a denial/failure.
type DeviceFix struct {
	Coordinate domain.Coordinate
	Denied     bool
}

// ResolveDevice resolves a device fix. A denied fix yields fallback without
// error; lookup failures for a granted fix are returned to the caller.
func (r *Resolver) ResolveDevice(ctx context.Context, fix DeviceFix, fallback domain.ResolvedLocation) (domain.ResolvedLocation, error) {
	if fix.Denied {
		r.logger.Info("device location unavailable, using fallback", "fallback", fallback.DisplayName)
		return fallback, nil
	}
	return r.ResolveByCoordinate(ctx, fix.Coordinate)
}
