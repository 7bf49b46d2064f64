package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/weather-dashboard-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-dashboard-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-dashboard-service/internal/adapter/nominatim"
	"github.com/couchcryptid/weather-dashboard-service/internal/adapter/nws"
	redisadapter "github.com/couchcryptid/weather-dashboard-service/internal/adapter/redis"
	"github.com/couchcryptid/weather-dashboard-service/internal/config"
	"github.com/couchcryptid/weather-dashboard-service/internal/location"
	"github.com/couchcryptid/weather-dashboard-service/internal/monitor"
	"github.com/couchcryptid/weather-dashboard-service/internal/notify"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
	"github.com/couchcryptid/weather-dashboard-service/internal/session"
	"github.com/couchcryptid/weather-dashboard-service/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	weather := nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.NWSTimeout, logger, metrics)
	geocoder := nominatim.NewCachedGeocoder(
		nominatim.NewClient(cfg.GeocodeBaseURL, cfg.NWSUserAgent, cfg.GeocodeTimeout, logger, metrics),
		cfg.GeocodeCacheSize,
		metrics,
	)
	logger.Info("geocoding configured", "base_url", cfg.GeocodeBaseURL, "cache_size", cfg.GeocodeCacheSize)

	resolver := location.NewResolver(geocoder, weather, logger)
	aggregator := snapshot.NewAggregator(weather, logger, metrics)

	redisClient := redisadapter.NewClient(cfg)
	prefs := redisadapter.NewPreferenceStore(redisClient, cfg.FallbackLocation)
	queue := redisadapter.NewPendingQueue(redisClient)

	var (
		publisher notify.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.NotificationsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("alert notifications enabled", "topic", cfg.KafkaNotifyTopic)
	} else {
		publisher = notify.LogPublisher{Logger: logger}
		logger.Info("alert notifications disabled")
	}
	dispatcher := notify.NewDispatcher(publisher, queue, cfg.DefaultRecipient, logger, metrics)
	notifier := notify.NewNotifier(dispatcher)

	sessions := session.NewManager(clock, logger, metrics)

	ready := []httpadapter.ReadinessChecker{prefs}
	var mon *monitor.Monitor
	if len(cfg.Watchlist) > 0 {
		mon = monitor.New(cfg.Watchlist, aggregator, notifier, dispatcher, clock, cfg.MonitorInterval, logger, metrics)
		ready = append(ready, mon)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:            ready,
		Resolver:         resolver,
		Snapshots:        aggregator,
		Alerts:           weather,
		Preferences:      prefs,
		Sessions:         sessions,
		Notifier:         notifier,
		Mailer:           dispatcher,
		FallbackLocation: cfg.FallbackLocation,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go sessions.RunStalenessCheck(ctx, cfg.StalenessInterval, cfg.SnapshotMaxAge)

	if mon != nil {
		go func() {
			if err := mon.Run(ctx); err != nil {
				logger.Error("monitor error", "error", err)
			}
		}()
	} else {
		logger.Info("no watchlist configured, monitor disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
