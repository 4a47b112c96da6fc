package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carbonledger-labs/carbonledger-go/internal/engine"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/auditlog"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/auth"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/env"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/httpserver"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/objectstore"
	"github.com/carbonledger-labs/carbonledger-go/internal/platform/postgres"
	"github.com/carbonledger-labs/carbonledger-go/internal/registry"
	repopg "github.com/carbonledger-labs/carbonledger-go/internal/repo/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("TRACKER_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("TRACKER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	uploadMaxMiB, err := env.Int("TRACKER_UPLOAD_MAX_MIB", 64)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}

	var authenticator auth.Authenticator
	var oidcSvc *auth.OIDCService
	switch authCfg.Mode {
	case auth.ModeLocal:
		authenticator, err = auth.NewLocalAuthenticator(authCfg)
		if err != nil {
			logger.Error("invalid local auth config", "error", err)
			os.Exit(2)
		}
	case auth.ModeOIDC:
		oidcSvc, err = auth.NewOIDCService(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(2)
		}
		authenticator = oidcSvc
	case auth.ModeDev:
		authenticator = auth.NewDevAuthenticator(authCfg)
	default:
		logger.Error("unsupported auth mode", "mode", string(authCfg.Mode))
		os.Exit(2)
	}

	reg, err := registry.Load()
	if err != nil {
		logger.Error("process table load failed", "error", err)
		os.Exit(2)
	}
	eng := engine.New(reg)

	userStore := repopg.NewUserStore(db)
	factorStore := repopg.NewFactorStore(db)
	emissionStore := repopg.NewEmissionStore(db)

	service := newTrackerService(userStore, factorStore, emissionStore, reg, eng, db, authCfg)
	api := newTrackerAPI(logger, service, authCfg, storeClient, storeCfg, int64(uploadMaxMiB)<<20)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("tracker"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"tracker",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)
	api.register(mux)

	if oidcSvc != nil {
		loginHandler, err := oidcSvc.LoginHandler()
		if err != nil {
			logger.Error("oidc login handler init failed", "error", err)
			os.Exit(2)
		}
		callbackHandler, err := oidcSvc.CallbackHandler()
		if err != nil {
			logger.Error("oidc callback handler init failed", "error", err)
			os.Exit(2)
		}
		mux.HandleFunc("GET /auth/oidc/login", loginHandler)
		mux.HandleFunc("GET /auth/oidc/callback", callbackHandler)
	}

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			actor := event.Subject
			if actor == "" {
				actor = "anonymous"
			}
			_, err := auditlog.Insert(auditCtx, db, auditlog.Event{
				OccurredAt:   event.Time,
				Actor:        actor,
				Action:       "auth.deny",
				ResourceType: "http",
				ResourceID:   event.Method + " " + event.Path,
				RequestID:    event.RequestID,
				RemoteAddr:   event.RemoteAddr,
				UserAgent:    event.UserAgent,
				Payload:      map[string]any{"status": event.Status, "reason": event.Reason},
			})
			return err
		},
		SkipPrefixes: []string{"/healthz", "/readyz", "/auth/register", "/auth/login", "/auth/oidc/"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "tracker",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "tracker", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
