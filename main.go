package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ssservicios/s3pay/internal/adapters/database"
	"github.com/ssservicios/s3pay/internal/adapters/directory"
	"github.com/ssservicios/s3pay/internal/adapters/visitrepository"
	"github.com/ssservicios/s3pay/internal/app"
	"github.com/ssservicios/s3pay/internal/config"
	"github.com/ssservicios/s3pay/internal/constants"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/ports"
	"github.com/ssservicios/s3pay/internal/ratelimiting"
	"github.com/ssservicios/s3pay/internal/reporting"
	"github.com/ssservicios/s3pay/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	_ "golang.org/x/crypto/x509roots/fallback"
)

func newVisitRepository(ctx context.Context, conf config.Config, httpClient *http.Client, logger *slog.Logger) (visitrepository.VisitRepository, error) {
	switch conf.AuditBackend() {
	case config.AuditBackendSheets:
		repo, err := visitrepository.NewGoogleSheetsFromConfig(ctx, httpClient, conf)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sheets visit repository: %w", err)
		}
		return repo, nil
	case config.AuditBackendPostgres:
		logger.Info("Initializing database connection")
		db, err := database.NewCloudsqlPostgresDatabase(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		schemaName := database.GetSchemaName(!conf.IsProduction())
		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		return visitrepository.NewPostgres(db, schemaName), nil
	case config.AuditBackendMemory:
		return visitrepository.NewMemory(), nil
	case config.AuditBackendNone:
		return visitrepository.Noop{}, nil
	}

	return nil, fmt.Errorf("unknown audit backend %q", conf.AuditBackend())
}

func main() {
	ctx := context.Background()
	instanceID := uuid.New().String()

	conf, err := config.ConfigFromEnv()

	// NOTE: Until the config is loaded we don't know the GCP project
	logger := slog.New(logging.NewHandler(os.Stdout, conf.GCPProject())).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	if conf.OTelEnabled() {
		shutdown, err := telemetry.SetupOTelSDK(ctx, constants.SERVICE_NAME)
		if err != nil {
			fail("Failed to set up OpenTelemetry", "error", err.Error())
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			err := shutdown(shutdownCtx)
			if err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	customerDirectory, err := directory.NewAriaOrMock(conf, httpClient)
	if err != nil {
		fail("Failed to initialize customer directory", "error", err.Error())
	}
	logger.Info("Initialized customer directory")

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	visitRepo, err := newVisitRepository(ctx, conf, httpClient, logger)
	if err != nil {
		fail("Failed to initialize visit repository", "error", err.Error(), "backend", conf.AuditBackend())
	}
	logger.Info("Initialized visit repository", "backend", conf.AuditBackend(), "detail", conf.AuditDetail())

	sessions, stopSessions := ports.NewSessionStore()
	defer stopSessions()

	consultLimiter, stopConsultLimiter := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(0.5),
		ratelimiting.BurstSize(30),
	)
	defer stopConsultLimiter()
	storefrontLimiter, stopStorefrontLimiter := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(1),
		ratelimiting.BurstSize(60),
	)
	defer stopStorefrontLimiter()

	resolveCustomer := app.BuildResolveCustomer(customerDirectory, conf.DirectoryTimeout())
	recordQuery := app.BuildRecordQuery(visitRepo, time.Now, conf.Location())
	recordClick := app.BuildRecordClick(visitRepo, time.Now, conf.Location())
	lookupBalance := app.BuildLookupBalance(resolveCustomer, recordQuery)

	mux := http.NewServeMux()

	mux.HandleFunc(
		"GET /{$}",
		ports.MakeHomeHandler(
			sessions,
			logger.With("port", "home"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"POST /consultar",
		ports.MakeConsultHandler(
			lookupBalance,
			sessions,
			ratelimiting.NewRequestBasedRateLimiter(consultLimiter, ratelimiting.IPKeyFunc),
			logger.With("port", "consultar"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /tienda",
		ports.MakeStorefrontHandler(
			recordClick,
			conf.StorefrontURL(),
			ratelimiting.NewRequestBasedRateLimiter(storefrontLimiter, ratelimiting.IPKeyFunc),
			logger.With("port", "tienda"),
			sentryMiddleware,
		),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", conf.Port()),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Init complete")
	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
