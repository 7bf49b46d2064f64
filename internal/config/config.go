package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// NWS API configuration.
	NWSBaseURL   string
	NWSUserAgent string
	NWSTimeout   time.Duration

	// Nominatim geocoding configuration.
	GeocodeBaseURL   string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Notification dispatch.
	KafkaBrokers         []string
	KafkaNotifyTopic     string
	NotificationsEnabled bool
	DefaultRecipient     string

	// Redis-backed preferences and offline queue.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MonitorInterval   time.Duration
	StalenessInterval time.Duration
	SnapshotMaxAge    time.Duration
	FallbackLocation  string

	WatchlistPath string
	Watchlist     []WatchLocation
}

// WatchLocation is a location the monitor checks for alerts on every cycle.
type WatchLocation struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Recipient string  `yaml:"recipient"`
}

// Coordinate returns the watched point.
func (w WatchLocation) Coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: w.Latitude, Lon: w.Longitude}
}

type watchlistFile struct {
	Locations []WatchLocation `yaml:"locations"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	nwsTimeout, err := parseDuration("NWS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	monitorInterval, err := parseDuration("MONITOR_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	stalenessInterval, err := parseDuration("STALENESS_INTERVAL", "15s")
	if err != nil {
		return nil, err
	}
	maxAge, err := parseDuration("SNAPSHOT_MAX_AGE", "30m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NWSBaseURL:   sharedcfg.EnvOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent: sharedcfg.EnvOrDefault("NWS_USER_AGENT", "weather-dashboard/1.0"),
		NWSTimeout:   nwsTimeout,

		GeocodeBaseURL:   sharedcfg.EnvOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: cacheSize,

		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic:     sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "weather-alert-notifications"),
		NotificationsEnabled: sharedcfg.EnvOrDefault("NOTIFICATIONS_ENABLED", "true") == "true",
		DefaultRecipient:     os.Getenv("DEFAULT_RECIPIENT"),

		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		MonitorInterval:   monitorInterval,
		StalenessInterval: stalenessInterval,
		SnapshotMaxAge:    maxAge,
		FallbackLocation:  sharedcfg.EnvOrDefault("FALLBACK_LOCATION", "New York, NY"),

		WatchlistPath: os.Getenv("WATCHLIST_PATH"),
	}

	if cfg.NotificationsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when notifications are enabled")
		}
		if cfg.KafkaNotifyTopic == "" {
			return nil, errors.New("KAFKA_NOTIFY_TOPIC is required when notifications are enabled")
		}
	}
	if cfg.NWSUserAgent == "" {
		return nil, errors.New("NWS_USER_AGENT is required")
	}

	if cfg.WatchlistPath != "" {
		cfg.Watchlist, err = LoadWatchlist(cfg.WatchlistPath)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// LoadWatchlist reads and validates a YAML watchlist file.
func LoadWatchlist(path string) ([]WatchLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	var f watchlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	for i, loc := range f.Locations {
		if err := loc.Coordinate().Validate(); err != nil {
			return nil, fmt.Errorf("watchlist entry %d (%q): %w", i, loc.Name, err)
		}
	}
	return f.Locations, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
