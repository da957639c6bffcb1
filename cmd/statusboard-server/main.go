package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/periop/statusboard/internal/config"
	"github.com/periop/statusboard/internal/domain/analytics"
	"github.com/periop/statusboard/internal/domain/clinician"
	"github.com/periop/statusboard/internal/domain/ledger"
	"github.com/periop/statusboard/internal/domain/patient"
	"github.com/periop/statusboard/internal/domain/status"
	"github.com/periop/statusboard/internal/platform/auth"
	"github.com/periop/statusboard/internal/platform/db"
	"github.com/periop/statusboard/internal/platform/events"
	"github.com/periop/statusboard/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "statusboard-server",
		Short: "Perioperative patient status board API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the status board API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
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

// newPublisher picks the transition event sink. rdb may be nil unless the
// redis backend is configured.
func newPublisher(cfg *config.Config, rdb *redis.Client) events.Publisher {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		return events.NewRedisPublisher(rdb, cfg.EventsStream)
	case config.EventsKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsStream)
	default:
		return events.Nop{}
	}
}

// services holds the domain wiring shared by the server and the CLI jobs.
type services struct {
	statuses   *status.Service
	clinicians clinician.Repository
	patients   *patient.Service
	analytics  *analytics.Service
}

func newServices(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, pub events.Publisher, logger zerolog.Logger) *services {
	statusRepo := status.NewRepoPG(pool)
	if rdb != nil {
		statusRepo = status.NewCachedRepo(statusRepo, rdb, cfg.StatusCacheTTL, logger)
	}
	statusSvc := status.NewService(statusRepo)

	patientRepo := patient.NewRepoPG(pool)
	ledgerRepo := ledger.NewRepoPG(pool)
	clinicianRepo := clinician.NewRepoPG(pool)

	patientSvc := patient.NewService(db.NewTransactor(pool), patientRepo, ledgerRepo, clinicianRepo, statusSvc,
		patient.Codes{Entry: cfg.EntryStatus, Discharge: cfg.DischargeStatus},
		patient.WithPublisher(pub),
		patient.WithLogger(logger),
	)

	return &services{
		statuses:   statusSvc,
		clinicians: clinicianRepo,
		patients:   patientSvc,
		analytics:  analytics.NewService(patientRepo, ledgerRepo, statusSvc, cfg.CompleteStatus),
	}
}

func newEcho(cfg *config.Config, logger zerolog.Logger, svcs *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthIssuer == "" && cfg.AuthSigningKey == "" {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	status.NewHandler(svcs.statuses).RegisterRoutes(apiV1)
	clinician.NewHandler(svcs.clinicians).RegisterRoutes(apiV1)
	patient.NewHandler(svcs.patients).RegisterRoutes(apiV1)
	analytics.NewHandler(svcs.analytics).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		logger := newLogger(nil)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
	}

	pub := newPublisher(cfg, rdb)
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing event publisher")
		}
	}()
	logger.Info().Str("backend", cfg.EventsBackend).Msg("transition events configured")

	e := newEcho(cfg, logger, newServices(cfg, pool, rdb, pub, logger))
	e.GET("/health/db", db.HealthHandler(pool, db.NewMigrator(pool, cfg.MigrationsDir)))

	// Graceful shutdown
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
