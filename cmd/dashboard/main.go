package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/npcl-dashboard/npcl-dashboard/cmd/dashboard/cli"
	"github.com/npcl-dashboard/npcl-dashboard/internal/app"
	"github.com/npcl-dashboard/npcl-dashboard/internal/audit"
	audithttp "github.com/npcl-dashboard/npcl-dashboard/internal/audit/http"
	"github.com/npcl-dashboard/npcl-dashboard/internal/auth"
	"github.com/npcl-dashboard/npcl-dashboard/internal/mail"
	"github.com/npcl-dashboard/npcl-dashboard/internal/observability"
	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/cache"
	"github.com/npcl-dashboard/npcl-dashboard/internal/platform/db"
	"github.com/npcl-dashboard/npcl-dashboard/internal/rbac"
	"github.com/npcl-dashboard/npcl-dashboard/internal/reports"
	"github.com/npcl-dashboard/npcl-dashboard/internal/shared"
	"github.com/npcl-dashboard/npcl-dashboard/internal/users"
	"github.com/npcl-dashboard/npcl-dashboard/internal/voicebot"
	"github.com/npcl-dashboard/npcl-dashboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		err = jobsCommand(ctx, cfg, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or jobs)", cmd)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		return err
	}
	defer pool.Close()
	return applyMigrations(ctx, pool, logger)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("names", applied))
	return nil
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	c := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = c.Close() }()
	if len(args) == 0 || args[0] == "stats" {
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Println(stats)
		return nil
	}
	if args[0] == "trigger" && len(args) == 2 {
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	}
	return fmt.Errorf("usage: jobs [stats | trigger <name>]")
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()
	if cfg.AutoMigrate {
		if err := applyMigrations(ctx, dbpool, logger); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	rbacMiddleware := rbac.Middleware{Store: usersRepo, Logger: logger}
	hasher := auth.NewHasher(cfg.BcryptCost)

	authService := auth.NewService(
		auth.NewRepository(dbpool),
		hasher,
		mail.NewQueueMailer(jobClient, logger),
		auditLogger,
		metrics,
		logger,
		auth.Options{ResetTokenTTL: cfg.ResetTokenTTL},
	)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, rbacMiddleware)

	usersService := users.NewService(usersRepo, hasher, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, sessionManager, rbacMiddleware)

	reportsService := reports.NewService(reports.NewRepository(dbpool), auditLogger, logger)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	voicebotHandler := voicebot.NewHandler(logger, voicebot.NewService(voicebot.NewRepository(dbpool)), rbacMiddleware)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		ReportsHandler:  reportsHandler,
		VoicebotHandler: voicebotHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
		Health: map[string]app.HealthChecker{
			"postgres": func(r *http.Request) error { return dbpool.Ping(r.Context()) },
			"redis":    func(r *http.Request) error { return redisClient.Ping(r.Context()).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	return runServer(ctx, server, logger)
}

// runServer blocks until ctx is cancelled or the listener fails. A listen
// failure is returned so the process exits non-zero.
func runServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("http server", slog.Any("error", err))
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
