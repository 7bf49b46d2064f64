// Command snapshot resolves a location and prints its weather snapshot and
// alert classification as JSON.
//
// Usage:
//
//	go run ./cmd/snapshot -q "Moore, OK"
//	go run ./cmd/snapshot -q 73160
//	go run ./cmd/snapshot -lat 35.3395 -lon -97.4867 -out moore.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-dashboard-service/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-dashboard-service/internal/adapter/nws"
	"github.com/couchcryptid/weather-dashboard-service/internal/config"
	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/location"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
	"github.com/couchcryptid/weather-dashboard-service/internal/snapshot"
)

type output struct {
	Location   domain.ResolvedLocation `json:"location"`
	Snapshot   domain.WeatherSnapshot  `json:"snapshot"`
	Classified domain.ClassifiedAlerts `json:"classified"`
	Notifiable []domain.AlertRecord    `json:"notifiable"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	query := flag.String("q", "", "place name or 5-digit US postal code")
	lat := flag.Float64("lat", math.NaN(), "latitude in decimal degrees")
	lon := flag.Float64("lon", math.NaN(), "longitude in decimal degrees")
	out := flag.String("out", "", "write JSON to this file instead of stdout")
	flag.Parse()

	byCoordinate := !math.IsNaN(*lat) || !math.IsNaN(*lon)
	if (*query == "") == !byCoordinate {
		flag.Usage()
		return fmt.Errorf("pass exactly one of -q or -lat/-lon")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	weather := nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.NWSTimeout, logger, metrics)
	geocoder := nominatim.NewClient(cfg.GeocodeBaseURL, cfg.NWSUserAgent, cfg.GeocodeTimeout, logger, metrics)
	resolver := location.NewResolver(geocoder, weather, logger)
	aggregator := snapshot.NewAggregator(weather, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var loc domain.ResolvedLocation
	if byCoordinate {
		loc, err = resolver.ResolveByCoordinate(ctx, domain.Coordinate{Lat: *lat, Lon: *lon})
	} else {
		loc, err = resolver.ResolveByText(ctx, *query)
	}
	if err != nil {
		return fmt.Errorf("resolve location: %w", err)
	}

	snap, err := aggregator.GetSnapshot(ctx, loc.Coordinate)
	if err != nil {
		return fmt.Errorf("snapshot for %s: %w", loc.DisplayName, err)
	}

	data, err := json.MarshalIndent(output{
		Location:   loc,
		Snapshot:   snap,
		Classified: domain.Classify(snap.Alerts),
		Notifiable: domain.NotifiableAlerts(snap.Alerts),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote snapshot for %s to %s", loc.DisplayName, *out)
	return nil
}
