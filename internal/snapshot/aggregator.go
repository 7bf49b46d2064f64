// Package snapshot aggregates NWS point, forecast, and alert lookups into a
// single WeatherSnapshot.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

// Aggregator builds weather snapshots. It is safe for concurrent use.
type Aggregator struct {
	weather domain.WeatherSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator backed by the given weather source.
func NewAggregator(weather domain.WeatherSource, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{weather: weather, logger: logger, metrics: metrics}
}

// GetSnapshot fetches current conditions, a forecast of up to
// domain.MaxForecastPeriods periods, and active alerts for c.
//
// The point and forecast lookups run in sequence; the alerts lookup runs
// alongside them and degrades to an empty list on any failure. A point or
// forecast failure aborts the snapshot with that error.
func (a *Aggregator) GetSnapshot(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error) {
	if err := c.Validate(); err != nil {
		return domain.WeatherSnapshot{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	alertsCh := make(chan []domain.AlertRecord, 1)
	go func() {
		alertsCh <- a.fetchAlerts(ctx, c)
	}()

	location, periods, err := a.fetchForecast(ctx, c)
	if err != nil {
		a.metrics.SnapshotsBuilt.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, err
	}

	snap := domain.WeatherSnapshot{
		Location:          location,
		CurrentConditions: periods[0],
		Forecast:          domain.UpcomingPeriods(periods),
		Alerts:            <-alertsCh,
		FetchedAt:         domain.Now(),
	}
	a.metrics.SnapshotsBuilt.WithLabelValues("success").Inc()
	a.logger.Debug("snapshot built",
		"location", location.DisplayName,
		"forecast_periods", len(snap.Forecast),
		"alerts", len(snap.Alerts),
	)
	return snap, nil
}

// fetchForecast runs the point → forecast chain. The returned periods are
// never empty.
func (a *Aggregator) fetchForecast(ctx context.Context, c domain.Coordinate) (domain.ResolvedLocation, []domain.ForecastPeriod, error) {
	meta, err := a.weather.Point(ctx, c)
	if err != nil {
		return domain.ResolvedLocation{}, nil, fmt.Errorf("point lookup: %w", err)
	}

	periods, err := a.weather.Forecast(ctx, meta.ForecastURL)
	if err != nil {
		return domain.ResolvedLocation{}, nil, fmt.Errorf("forecast lookup: %w", err)
	}
	if len(periods) == 0 {
		return domain.ResolvedLocation{}, nil, fmt.Errorf("forecast for %s has no periods: %w", c, domain.ErrIncompleteData)
	}

	name := domain.CityRegion(meta.City, meta.State)
	if name == "" {
		name = c.String()
	}
	return domain.ResolvedLocation{Coordinate: c, DisplayName: name}, periods, nil
}

func (a *Aggregator) fetchAlerts(ctx context.Context, c domain.Coordinate) []domain.AlertRecord {
	alerts, err := a.weather.ActiveAlerts(ctx, c)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("alerts lookup failed, continuing without alerts", "error", err, "point", c.String())
			a.metrics.AlertsDegraded.Inc()
		}
		return []domain.AlertRecord{}
	}
	if alerts == nil {
		alerts = []domain.AlertRecord{}
	}
	return alerts
}
