package location

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

// --- mocks ---

type mockGeocoder struct {
	result    domain.GeocodeResult
	err       error
	textCalls []string
	zipCalls  []string
}

func (m *mockGeocoder) SearchText(_ context.Context, q string) (domain.GeocodeResult, error) {
	m.textCalls = append(m.textCalls, q)
	return m.result, m.err
}

func (m *mockGeocoder) SearchPostalCode(_ context.Context, zip string) (domain.GeocodeResult, error) {
	m.zipCalls = append(m.zipCalls, zip)
	return m.result, m.err
}

type mockWeather struct {
	meta       domain.PointMetadata
	err        error
	pointCalls int
}

func (m *mockWeather) Point(context.Context, domain.Coordinate) (domain.PointMetadata, error) {
	m.pointCalls++
	return m.meta, m.err
}

func (m *mockWeather) Forecast(context.Context, string) ([]domain.ForecastPeriod, error) {
	return nil, nil
}

func (m *mockWeather) ActiveAlerts(context.Context, domain.Coordinate) ([]domain.AlertRecord, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var austinResult = domain.GeocodeResult{
	Coordinate:  domain.Coordinate{Lat: 30.2672, Lon: -97.7431},
	DisplayName: "Austin, Travis County, Texas, United States",
}

// --- tests ---

func TestResolveByText_RoutesPostalCode(t *testing.T) {
	geo := &mockGeocoder{result: austinResult}
	r := NewResolver(geo, &mockWeather{}, discardLogger())

	_, err := r.ResolveByText(context.Background(), "78701")
	require.NoError(t, err)

	assert.Equal(t, []string{"78701"}, geo.zipCalls)
	assert.Empty(t, geo.textCalls)
}

func TestResolveByText_RoutesFreeText(t *testing.T) {
	for _, q := range []string{"Austin", "7870", "787012", "78701-0001", "Austin 78701"} {
		t.Run(q, func(t *testing.T) {
			geo := &mockGeocoder{result: austinResult}
			r := NewResolver(geo, &mockWeather{}, discardLogger())

			_, err := r.ResolveByText(context.Background(), q)
			require.NoError(t, err)

			assert.Equal(t, []string{q}, geo.textCalls)
			assert.Empty(t, geo.zipCalls)
		})
	}
}

func TestResolveByText_ShortensDisplayName(t *testing.T) {
	r := NewResolver(&mockGeocoder{result: austinResult}, &mockWeather{}, discardLogger())

	loc, err := r.ResolveByText(context.Background(), "  Austin  ")
	require.NoError(t, err)

	assert.Equal(t, "Austin, Travis County", loc.DisplayName)
	assert.Equal(t, austinResult.Coordinate, loc.Coordinate)
}

func TestResolveByText_Empty(t *testing.T) {
	geo := &mockGeocoder{}
	r := NewResolver(geo, &mockWeather{}, discardLogger())

	_, err := r.ResolveByText(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, geo.textCalls)
}

func TestResolveByText_NoResults(t *testing.T) {
	r := NewResolver(&mockGeocoder{}, &mockWeather{}, discardLogger())

	_, err := r.ResolveByText(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveByText_GeocoderError(t *testing.T) {
	r := NewResolver(&mockGeocoder{err: domain.ErrTransientNetwork}, &mockWeather{}, discardLogger())

	_, err := r.ResolveByText(context.Background(), "Austin")
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
}

func TestResolveByText_RejectsInvalidGeocoderCoordinate(t *testing.T) {
	for _, c := range []domain.Coordinate{
		{Lat: math.NaN(), Lon: 200},
		{Lat: math.Inf(1), Lon: -97},
		{Lat: 91, Lon: -97},
	} {
		geo := &mockGeocoder{result: domain.GeocodeResult{Coordinate: c, DisplayName: "X, Y"}}
		r := NewResolver(geo, &mockWeather{}, discardLogger())

		_, err := r.ResolveByText(context.Background(), "Austin")
		require.ErrorIs(t, err, domain.ErrIncompleteData, c.String())
		assert.NotErrorIs(t, err, domain.ErrInvalidInput, "upstream fault, not the caller's")
	}
}

func TestResolveByCoordinate_CityState(t *testing.T) {
	w := &mockWeather{meta: domain.PointMetadata{ForecastURL: "x", City: "Linn", State: "KS"}}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())
	c := domain.Coordinate{Lat: 39.7456, Lon: -97.0892}

	loc, err := r.ResolveByCoordinate(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "Linn, KS", loc.DisplayName)
	assert.Equal(t, 1, strings.Count(loc.DisplayName, ","))
	assert.Equal(t, c, loc.Coordinate)
}

func TestResolveByCoordinate_Invalid(t *testing.T) {
	w := &mockWeather{}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())

	for _, c := range []domain.Coordinate{{Lat: 91}, {Lon: -181}, {Lat: math.NaN()}} {
		_, err := r.ResolveByCoordinate(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, 0, w.pointCalls)
}

func TestResolveByCoordinate_MissingCity(t *testing.T) {
	w := &mockWeather{meta: domain.PointMetadata{ForecastURL: "x", State: "KS"}}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())

	_, err := r.ResolveByCoordinate(context.Background(), domain.Coordinate{Lat: 39, Lon: -97})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveByCoordinate_PointNotFound(t *testing.T) {
	w := &mockWeather{err: domain.ErrNotFound}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())

	_, err := r.ResolveByCoordinate(context.Background(), domain.Coordinate{Lat: 48.85, Lon: 2.35})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveDevice_DeniedUsesFallback(t *testing.T) {
	w := &mockWeather{}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())
	fallback := domain.ResolvedLocation{Coordinate: domain.Coordinate{Lat: 40.7128, Lon: -74.006}, DisplayName: "New York, NY"}

	loc, err := r.ResolveDevice(context.Background(), DeviceFix{Denied: true}, fallback)
	require.NoError(t, err)

	assert.Equal(t, fallback, loc)
	assert.Equal(t, 0, w.pointCalls)
}

func TestResolveDevice_GrantedResolvesCoordinate(t *testing.T) {
	w := &mockWeather{meta: domain.PointMetadata{ForecastURL: "x", City: "Moore", State: "OK"}}
	r := NewResolver(&mockGeocoder{}, w, discardLogger())

	loc, err := r.ResolveDevice(context.Background(), DeviceFix{Coordinate: domain.Coordinate{Lat: 35.34, Lon: -97.49}}, domain.ResolvedLocation{})
	require.NoError(t, err)
	assert.Equal(t, "Moore, OK", loc.DisplayName)
}
