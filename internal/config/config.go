package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeather current conditions and geocoding.
	WeatherAPIKey    string
	WeatherBaseURL   string
	WeatherTimeout   time.Duration
	WeatherCacheTTL  time.Duration
	WeatherCacheSize int // 0 disables the cache
	GeocodeCacheTTL  time.Duration
	DefaultLocation  string

	// Gemini inference.
	GeminiAPIKey string
	GeminiModel  string
	ModelTimeout time.Duration

	// Postgres record store. Empty keeps scenarios in memory.
	DatabaseURL string

	// Scenario event stream.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaEventsTopic string

	// Mapbox forward geocoding, preferred over OpenWeather geocoding when enabled.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("WEATHER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	geocodeTTL, err := parseDuration("GEOCODE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	modelTimeout, err := parseDuration("MODEL_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("WEATHER_CACHE_SIZE", 100)
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid WEATHER_CACHE_SIZE")
	}
	burst, err := parseInt("RATE_LIMIT_BURST", 20)
	if err != nil || burst <= 0 {
		return nil, errors.New("invalid RATE_LIMIT_BURST")
	}
	rps, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RATE_LIMIT_RPS", "10"), 64)
	if err != nil || rps <= 0 {
		return nil, errors.New("invalid RATE_LIMIT_RPS")
	}

	weatherKey := os.Getenv("WEATHER_API_KEY")
	if weatherKey == "" {
		weatherKey = os.Getenv("OPEN_WEATHER_API_KEY")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WeatherAPIKey:    weatherKey,
		WeatherBaseURL:   sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org"),
		WeatherTimeout:   weatherTimeout,
		WeatherCacheTTL:  cacheTTL,
		WeatherCacheSize: cacheSize,
		GeocodeCacheTTL:  geocodeTTL,
		DefaultLocation:  sharedcfg.EnvOrDefault("DEFAULT_LOCATION", "Ho Chi Minh City"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		ModelTimeout: modelTimeout,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "scenario-events"),

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,

		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
