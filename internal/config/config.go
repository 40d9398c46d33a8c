package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS event API.
	USGSBaseURL     string
	USGSTimeout     time.Duration
	RefreshInterval time.Duration
	DisplayTimezone *time.Location

	// ArcGIS boundary layers.
	ArcGISBaseURL   string
	ArcGISTimeout   time.Duration
	ArcGISCacheSize int
	Layers          []domain.LayerDef

	// Optional record set publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Optional snapshot persistence; empty disables it.
	SnapshotPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	usgsTimeout, err := parsePositiveDuration("USGS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := parsePositiveDuration("ARCGIS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "0s"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	tzName := sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "Asia/Hong_Kong")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", tzName, err)
	}

	layers := domain.DefaultLayers
	if path := os.Getenv("LAYERS_FILE"); path != "" {
		layers, err = LoadLayerCatalog(path)
		if err != nil {
			return nil, err
		}
	}

	brokersRaw := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled := brokersRaw != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSBaseURL:     sharedcfg.EnvOrDefault("USGS_BASE_URL", "https://earthquake.usgs.gov"),
		USGSTimeout:     usgsTimeout,
		RefreshInterval: refreshInterval,
		DisplayTimezone: loc,

		ArcGISBaseURL:   sharedcfg.EnvOrDefault("ARCGIS_BASE_URL", "https://services.arcgis.com/jIL9msH9OI208GCb/arcgis/rest/services"),
		ArcGISTimeout:   arcgisTimeout,
		ArcGISCacheSize: parseCacheSize(),
		Layers:          layers,

		KafkaEnabled: kafkaEnabled,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquake-events"),

		SnapshotPath: os.Getenv("SNAPSHOT_PATH"),
	}
	if brokersRaw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokersRaw)
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCacheSize() int {
	if s := os.Getenv("ARCGIS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 16
}
