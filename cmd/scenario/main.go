package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/disaster-scenario-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/disaster-scenario-service/internal/adapter/kafka"
	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/mapbox"
	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/memory"
	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/openweather"
	"github.com/couchcryptid/disaster-scenario-service/internal/adapter/postgres"
	"github.com/couchcryptid/disaster-scenario-service/internal/chat"
	"github.com/couchcryptid/disaster-scenario-service/internal/config"
	"github.com/couchcryptid/disaster-scenario-service/internal/inference"
	"github.com/couchcryptid/disaster-scenario-service/internal/observability"
	"github.com/couchcryptid/disaster-scenario-service/internal/scenario"
	"github.com/couchcryptid/disaster-scenario-service/internal/weather"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Weather gateway. Without a key every weather lookup fails as misconfigured.
	var (
		provider weather.Provider
		geocoder weather.Geocoder
	)
	if cfg.WeatherAPIKey != "" {
		ow := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.WeatherTimeout, logger, metrics)
		provider, geocoder = ow, ow
	} else {
		logger.Warn("WEATHER_API_KEY not set, weather lookups will fail")
	}
	if cfg.MapboxEnabled {
		geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	}
	if geocoder != nil {
		geocoder = weather.NewCachedGeocoder(geocoder, cfg.GeocodeCacheTTL)
	}
	var cache weather.Cache = weather.NoopCache{}
	if cfg.WeatherCacheSize > 0 {
		cache = weather.NewTTLCache(cfg.WeatherCacheSize, clockwork.NewRealClock())
	}
	gateway := weather.NewGateway(provider, geocoder, cache, cfg.WeatherCacheTTL, logger, metrics)

	// Model. Without a key every assessment uses the deterministic fallback.
	var model inference.Model
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		model = client
		logger.Info("gemini inference enabled", "model", client.Model())
	} else {
		logger.Warn("GEMINI_API_KEY not set, using fallback assessments")
	}
	engine := inference.NewEngine(model, cfg.ModelTimeout, logger, metrics)

	// Scenario store.
	var (
		store scenario.Store
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		pool, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			pool.Close()
			os.Exit(1)
		}
		store = postgres.NewStore(pool, logger)
		logger.Info("postgres scenario store enabled")
	} else {
		store = memory.NewStore()
		logger.Info("DATABASE_URL not set, scenarios kept in memory")
	}

	// Event stream.
	var (
		publisher scenario.Publisher = scenario.NoopPublisher{}
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger, metrics)
		publisher = kafkaPub
		logger.Info("scenario events enabled", "topic", cfg.KafkaEventsTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := scenario.NewService(store, gateway, engine, publisher, logger, metrics)
	router := chat.NewRouter(model, gateway, svc, cfg.DefaultLocation, cfg.ModelTimeout, logger, metrics)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Services{
		Scenarios: svc,
		Chat:      router,
		Weather:   gateway,
	}, svc, limiter, logger, metrics)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}

	logger.Info("shutdown complete")
}
