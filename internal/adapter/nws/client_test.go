package nws

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

const testUserAgent = "(weather-dashboard-test, ops@example.com)"

var linn = domain.Coordinate{Lat: 39.7456, Lon: -97.0892}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		userAgent:  testUserAgent,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// fixtureServer serves the testdata fixtures, rewriting upstream URLs to point at itself.
func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, acceptGeoJSON, r.Header.Get("Accept"))

		var name string
		switch {
		case strings.HasPrefix(r.URL.Path, "/points/"):
			name = "points.json"
		case strings.HasSuffix(r.URL.Path, "/forecast"):
			name = "forecast.json"
		case r.URL.Path == "/alerts/active":
			name = "alerts.json"
		default:
			http.NotFound(w, r)
			return
		}
		body := strings.ReplaceAll(readFixture(t, name), "https://api.weather.gov", srv.URL)
		w.Header().Set("Content-Type", acceptGeoJSON)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestClient_Point(t *testing.T) {
	srv := fixtureServer(t)

	meta, err := testClient(srv.URL).Point(context.Background(), linn)
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/gridpoints/TOP/32,81/forecast", meta.ForecastURL)
	assert.Equal(t, "Linn", meta.City)
	assert.Equal(t, "KS", meta.State)
}

func TestClient_Point_RoundsCoordinate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"properties":{"forecast":"http://x/forecast"}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Point(context.Background(), domain.Coordinate{Lat: 39.745612, Lon: -97.089187})
	require.NoError(t, err)
	assert.Equal(t, "/points/39.7456,-97.0892", gotPath)
}

func TestClient_Point_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"title":"Data Unavailable For Requested Point"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Point(context.Background(), domain.Coordinate{Lat: 48.8566, Lon: 2.3522})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Point_MissingForecastURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"properties":{"relativeLocation":{"properties":{"city":"Linn","state":"KS"}}}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Point(context.Background(), linn)
	assert.ErrorIs(t, err, domain.ErrIncompleteData)
}

func TestClient_Point_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Point(context.Background(), linn)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.True(t, domain.Retryable(err))
}

func TestClient_Forecast(t *testing.T) {
	srv := fixtureServer(t)

	periods, err := testClient(srv.URL).Forecast(context.Background(), srv.URL+"/gridpoints/TOP/32,81/forecast")
	require.NoError(t, err)

	require.Len(t, periods, 9)
	first := periods[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "This Afternoon", first.Name)
	assert.True(t, first.IsDaytime)
	assert.Equal(t, 78, first.Temperature)
	assert.Equal(t, "F", first.TemperatureUnit)
	assert.Equal(t, "15 to 25 mph", first.WindSpeed)
	assert.Equal(t, "Showers And Thunderstorms Likely", first.ShortForecast)
	assert.True(t, first.StartTime.Equal(time.Date(2026, 5, 6, 18, 0, 0, 0, time.UTC)))
}

func TestClient_Forecast_NotFoundIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), srv.URL+"/gridpoints/TOP/1,1/forecast")
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
}

func TestClient_Forecast_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"properties":{"periods":"soon"}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), srv.URL+"/forecast")
	assert.ErrorIs(t, err, domain.ErrIncompleteData)
}

func TestClient_ActiveAlerts(t *testing.T) {
	srv := fixtureServer(t)

	alerts, err := testClient(srv.URL).ActiveAlerts(context.Background(), linn)
	require.NoError(t, err)

	require.Len(t, alerts, 3)
	assert.Equal(t, "urn:oid:2.49.0.1.840.0.tor.1", alerts[0].ID)
	assert.Equal(t, domain.SeverityExtreme, alerts[0].Severity)
	assert.Equal(t, "Tornado Warning", alerts[0].Event)
	assert.Equal(t, "Washington, KS; Republic, KS", alerts[0].AreaDesc)
	assert.False(t, alerts[0].Ends.IsZero())
	assert.Equal(t, domain.SeverityMinor, alerts[2].Severity)
	assert.True(t, alerts[2].Ends.IsZero(), "null ends decodes as zero time")
}

func TestClient_ActiveAlerts_QueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/active", r.URL.Path)
		assert.Equal(t, "39.7456,-97.0892", r.URL.Query().Get("point"))
		_, _ = io.WriteString(w, `{"features":[]}`)
	}))
	defer srv.Close()

	alerts, err := testClient(srv.URL).ActiveAlerts(context.Background(), linn)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestClient_ActiveAlerts_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ActiveAlerts(context.Background(), linn)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
}
