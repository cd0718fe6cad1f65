package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zenda/zenda/internal/config"
	"github.com/zenda/zenda/internal/domain/account"
	"github.com/zenda/zenda/internal/domain/assistant"
	"github.com/zenda/zenda/internal/domain/note"
	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/domain/reminder"
	"github.com/zenda/zenda/internal/domain/scheduling"
	"github.com/zenda/zenda/internal/domain/telemetry"
	"github.com/zenda/zenda/internal/platform/auth"
	"github.com/zenda/zenda/internal/platform/calendar"
	"github.com/zenda/zenda/internal/platform/db"
	"github.com/zenda/zenda/internal/platform/docstore"
	"github.com/zenda/zenda/internal/platform/llm"
	"github.com/zenda/zenda/internal/platform/middleware"
	"github.com/zenda/zenda/internal/platform/webhook"
	"github.com/zenda/zenda/internal/platform/websocket"
	"github.com/zenda/zenda/migrations"
)

const version = "0.1.0"

func main() {
	// Environment variables already set win over .env.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "zenda-server",
		Short: "Zenda practice management API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			ctx := context.Background()
			pool, err := migrationPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS, schema).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) on schema %s.\n", count, schema)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			ctx := context.Background()
			pool, err := migrationPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS, schema).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.StorageBackend != config.BackendPostgres {
		return nil, fmt.Errorf("migrations only apply to the %q backend", config.BackendPostgres)
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func newLogger(env, level string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// backend holds the repositories for the selected storage engine.
type backend struct {
	name     string
	patients patient.Repository
	notes    note.Repository
	accounts account.Repository
	sessions scheduling.Repository
	clicks   telemetry.Repository
	pinger   db.Pinger
	stats    func() *db.PoolStats
	close    func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StorageBackend {
	case config.BackendFirestore:
		client, err := docstore.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			return nil, err
		}
		return firestoreBackend(client), nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return postgresBackend(pool), nil
	}
}

func postgresBackend(pool *pgxpool.Pool) *backend {
	return &backend{
		name:     config.BackendPostgres,
		patients: patient.NewRepoPG(pool),
		notes:    note.NewRepoPG(pool),
		accounts: account.NewRepoPG(pool),
		sessions: scheduling.NewRepoPG(pool),
		clicks:   telemetry.NewRepoPG(pool),
		pinger:   pool,
		stats:    func() *db.PoolStats { return db.GetPoolStats(pool) },
		close:    pool.Close,
	}
}

func firestoreBackend(client *firestore.Client) *backend {
	return &backend{
		name:     config.BackendFirestore,
		patients: patient.NewRepoFirestore(client),
		notes:    note.NewRepoFirestore(client),
		accounts: account.NewRepoFirestore(client),
		sessions: scheduling.NewRepoFirestore(client),
		clicks:   telemetry.NewRepoFirestore(client),
		pinger:   docstore.Pinger{Client: client},
		close:    func() { _ = client.Close() },
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() && cfg.AuthJWKSURL == "" {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:               cfg.AuthIssuer,
		Audience:             cfg.AuthAudience,
		JWKSURL:              cfg.AuthJWKSURL,
		RequireVerifiedEmail: cfg.AuthRequireVerifiedEmail,
	})
}

// newServer wires every handler onto a fresh echo instance.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, b *backend) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevUserHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", db.HealthHandler(version, b.name, b.pinger, b.stats))

	authMW := authMiddleware(cfg)
	public := e.Group("")
	apiV1 := e.Group("/api/v1", authMW, middleware.RateLimit(rateLimitConfig(cfg)))

	hub := websocket.NewHub(logger)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e, authMW)

	// Services
	patientSvc := patient.NewService(b.patients, hub, logger)
	noteSvc := note.NewService(b.notes, patientSvc, hub, logger)
	accountSvc := account.NewService(b.accounts, logger)
	clickSvc := telemetry.NewService(b.clicks, logger)

	sender := webhook.NewSender(webhook.NewMemoryLog(500))
	dispatcher := reminder.NewDispatcher(sender, cfg.ReminderWebhookURL, cfg.ReminderWebhookSecret, logger)
	if cfg.ReminderWebhookURL == "" {
		logger.Warn().Msg("REMINDER_WEBHOOK_URL is not set; reminders will report a configuration error")
	}

	schedOpts := []scheduling.Option{
		scheduling.WithReminders(dispatcher),
		scheduling.WithScope(cfg.OverlapScope),
		scheduling.WithLocation(cfg.Location()),
	}
	var oauth *calendar.OAuth
	if cfg.CalendarEnabled() {
		oauthCfg := calendar.NewOAuthConfig(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL)
		oauth = calendar.NewOAuth(oauthCfg, cfg.OAuthStateSecret, b.accounts)
		schedOpts = append(schedOpts, scheduling.WithCalendar(calendar.NewClient(oauthCfg, b.accounts, logger)))
		logger.Info().Msg("google calendar sync enabled")
	}
	sessionSvc := scheduling.NewService(b.sessions, patientSvc, hub, logger, schedOpts...)

	provider, err := llm.New(ctx, llm.Config{
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		GCPProject:    cfg.GCPProject,
		GCPLocation:   cfg.GCPLocation,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		MockResponses: assistant.DevResponses(),
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	catalog, err := assistant.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("prompt catalog: %w", err)
	}
	assistantSvc := assistant.NewService(provider, catalog, logger)

	// Routes
	account.NewHandler(accountSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	note.NewHandler(noteSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(sessionSvc).RegisterRoutes(apiV1)
	reminder.NewHandler(sender.Log()).RegisterRoutes(apiV1)
	assistant.NewHandler(assistantSvc, noteSvc, patientSvc).RegisterRoutes(apiV1)
	telemetry.NewHandler(clickSvc).RegisterRoutes(apiV1)
	calendar.NewHandler(oauth, cfg.AppURL, logger).RegisterRoutes(apiV1, public)

	logger.Info().
		Str("storage", b.name).
		Str("llm", provider.Name()).
		Msg("routes registered")
	return e, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("storage", cfg.StorageBackend).Msg("failed to open storage backend")
	}
	defer b.close()
	logger.Info().Str("storage", b.name).Msg("connected to storage")

	e, err := newServer(ctx, cfg, logger, b)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
