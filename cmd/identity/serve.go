package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/cache"
	mongodb "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Start the HTTP API and serve until SIGINT or SIGTERM, then drain in-flight requests.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to mongo").Wrap(err)
	}
	defer func() {
		if err := mongodb.Disconnect(mongoClient, 0); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return oops.Code("REDIS_CONNECT_FAILED").With("operation", "connect to redis").Wrap(err)
	}
	defer func() { _ = rdb.Close() }()

	identities := mongodb.NewIdentityRepository(db)
	categories := cache.NewCategoryCache(mongodb.NewCategoryRepository(db), cfg.Cache.CategoryTTL)

	var lastLogin ports.LastLoginRecorder
	if cfg.Recorder.Workers > 0 {
		dispatcher := queue.NewDispatcher(cfg.Recorder.Workers, identities, log)
		dispatcher.Start()
		defer dispatcher.Close()
		lastLogin = dispatcher
	}

	// --- Core ---
	sessions, err := service.NewSessionIssuer(cfg.SessionConfig())
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "session issuer").Wrap(err)
	}

	authService := service.NewAuthService(service.AuthDeps{
		Identities: identities,
		Categories: categories,
		Hasher:     service.NewBcryptHasher(cfg.Auth.BcryptCost),
		Sessions:   sessions,
		LastLogin:  lastLogin,
		Guard:      redisdb.NewRegistrationGuard(rdb),
		Log:        log,
	})

	// --- HTTP ---
	e := api.NewRouter(api.RouterDeps{
		Log:         log,
		AuthService: authService,
		Tokens:      sessions,
		Dependencies: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
