package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cardiomon/api/internal/config"
	"github.com/cardiomon/api/internal/domain/monitoring"
	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/domain/patient"
	"github.com/cardiomon/api/internal/platform/auth"
	"github.com/cardiomon/api/internal/platform/db"
	"github.com/cardiomon/api/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthKey),
		Skipper:    auth.AuthSkipper,
	}
}

func newRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func newEstimator(cfg *config.Config, rdb *redis.Client, logger zerolog.Logger) *nutrition.Estimator {
	gen := nutrition.NewGeminiClient(nutrition.GeminiConfig{
		BaseURL:         cfg.GeminiBaseURL,
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		MaxOutputTokens: cfg.EstimatorMaxTokens,
		Temperature:     nutrition.Float(cfg.EstimatorTemperature),
		Timeout:         cfg.EstimatorTimeout,
		RetryCount:      cfg.EstimatorRetries,
	}, logger.With().Str("component", "gemini").Logger())

	opts := []nutrition.Option{nutrition.WithTimeout(cfg.EstimatorTimeout)}
	if rdb != nil && cfg.CacheTTL > 0 {
		opts = append(opts, nutrition.WithCache(nutrition.NewRedisCache(rdb, cfg.CacheTTL)))
	}
	return nutrition.NewEstimator(gen, logger.With().Str("component", "nutrition").Logger(), opts...)
}

// newRouter assembles the HTTP surface. rdb may be nil, in which case
// estimates are not cached and submissions are only limited per process.
func newRouter(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	checks := []db.Check{db.PoolCheck(pool)}
	if rdb != nil {
		checks = append(checks, db.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	e.GET("/health/db", db.HealthHandler(checks...))

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(jwtConfig(cfg)))
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	var submit []echo.MiddlewareFunc
	if rdb != nil && cfg.SubmitRatePerMinute > 0 {
		limiter := middleware.NewWindowLimiter(rdb, cfg.SubmitRatePerMinute, time.Minute, logger)
		submit = append(submit, limiter.Middleware())
	}

	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo)
	patient.NewHandler(patientSvc, logger).RegisterRoutes(apiV1)

	entryRepo := monitoring.NewRepo(pool)
	monitoringSvc := monitoring.NewService(
		entryRepo,
		patientRepo,
		newEstimator(cfg, rdb, logger),
		logger.With().Str("component", "monitoring").Logger(),
	)
	monitoring.NewHandler(monitoringSvc, logger).RegisterRoutes(apiV1, submit...)
	monitoring.NewDashboardHandler(monitoring.NewDashboardService(entryRepo, patientRepo), logger).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development auth enabled: requests without a token run as admin")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	rdb, err := newRedis(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
	}

	e := newRouter(cfg, logger, pool, rdb)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
