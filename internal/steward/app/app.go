package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	httpapi "github.com/aussiebroadwan/steward/internal/steward/http"
	"github.com/aussiebroadwan/steward/internal/steward/platform"
	"github.com/aussiebroadwan/steward/internal/steward/service"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/postgres"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/sqlite"
	"github.com/aussiebroadwan/steward/pkg/slogx"
	"github.com/aussiebroadwan/steward/pkg/throttle"
	"github.com/aussiebroadwan/steward/pkg/workplace"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the webhook server, the policy engines and the
// inactivity scheduler together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	platform *platform.Adapter
	audit    audit.Publisher

	// Services
	ledger     *service.ActivityLedger
	inactivity *service.InactivityService
	scheduler  *service.InactivityScheduler
	events     *service.EventRouter

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "steward",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Debug:   cfg.Debug,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initPlatform()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.scheduler.Start()

	app.logger.Info("steward starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"app_id", app.cfg.AppID,
		"admins", len(app.cfg.AdminIDs),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting webhooks, finishes in-flight deliveries, cancels
// any running sweep and closes the ledger.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down steward...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.scheduler.Stop()
	app.events.Wait()

	if err := app.audit.Close(); err != nil {
		app.logger.Error("error closing audit publisher", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing ledger", "error", err)
		return err
	}

	app.logger.Info("steward stopped")
	return nil
}

// initDatabase opens the ledger driver selected by the DSN scheme and
// applies migrations.
func (app *Application) initDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, driver, err := openLedger(ctx, app.cfg.LedgerDSN, app.cfg.LedgerTable)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply ledger migrations: %w", err)
	}

	app.logger.Info("ledger migrations applied successfully", "driver", driver, "table", app.cfg.LedgerTable)
	return nil
}

func openLedger(ctx context.Context, dsn, table string) (store.Store, string, error) {
	if isPostgresDSN(dsn) {
		st, err := postgres.NewStore(ctx, dsn, table)
		return st, "postgres", err
	}

	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}
	st, err := sqlite.NewStore(dsn, table)
	return st, "sqlite", err
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (app *Application) initPlatform() {
	client := workplace.New(workplace.Options{
		BaseURL:     app.cfg.GraphBaseURL,
		AccessToken: app.cfg.AccessToken,
		AppSecret:   app.cfg.AppSecret,
		Timeout:     app.cfg.GraphTimeout,
		PageSize:    app.cfg.RosterPageSize,
	})
	app.platform = platform.New(client)

	if len(app.cfg.KafkaBrokers) > 0 {
		app.audit = audit.NewKafkaPublisher(app.cfg.KafkaBrokers, app.cfg.AuditTopic)
		app.logger.Info("audit publisher enabled", "brokers", app.cfg.KafkaBrokers, "topic", app.cfg.AuditTopic)
	} else {
		app.audit = audit.Nop{}
	}
}

// initServices initializes the ledger and policy engines
func (app *Application) initServices() {
	app.ledger = service.NewActivityLedger(app.db.Activity(), app.cfg.LedgerMonotonic)

	thresholds := service.Thresholds{
		WarnAfter:       app.cfg.WarnAfter,
		DeactivateAfter: app.cfg.DeactivateAfter,
	}
	app.inactivity = &service.InactivityService{
		Roster:      &service.RosterClient{Source: app.platform},
		Ledger:      app.ledger,
		Messenger:   app.platform,
		Deactivator: service.LogDeactivator{},
		Audit:       app.audit,
		Admins:      app.cfg.AdminIDs,
		Operators:   app.cfg.OperatorIDs,
		Thresholds:  thresholds,
		Concurrency: app.cfg.InactivityConcurrency,
	}

	sweepCtx := slogx.WithContext(context.Background(), app.logger)
	app.scheduler = service.NewInactivityScheduler(sweepCtx, app.inactivity, app.logger, app.cfg.InactivityScanInterval)

	// One reminder per interval, with a burst for quick back-and-forth.
	prompts := throttle.New(throttle.Config{
		Events: 1,
		Window: app.cfg.OnboardingPromptInterval,
		Burst:  app.cfg.OnboardingPromptBurst,
	})
	onboarding := &service.OnboardingService{
		Profiles:     app.platform,
		Messenger:    app.platform,
		Requirements: service.DefaultRequirements(),
		Audit:        app.audit,
		Prompts:      prompts,
	}

	welcome := &service.WelcomeService{
		Profiles:  app.platform,
		Messenger: app.platform,
		OrgName:   app.cfg.OrgName,
		Messages:  app.cfg.WelcomeMessages,
	}

	app.events = &service.EventRouter{
		Ledger:     app.ledger,
		Onboarding: onboarding,
		Welcome:    welcome,
		Sweeps:     app.scheduler,
		Messenger:  app.platform,
		Admins:     service.AdminSet(app.cfg.AdminIDs),
		Command:    app.cfg.InactivityCommand,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.cfg.VerifyToken,
		BuildVersion,
		app.db,
		app.events,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
