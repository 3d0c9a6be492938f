package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/handlers"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/SscSPs/procureflow/internal/platform/config"
	"github.com/SscSPs/procureflow/internal/repositories/database/pgsql"
	"github.com/SscSPs/procureflow/internal/repositories/memory"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/SscSPs/procureflow/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the outbox relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "relay", Value: true, Usage: "run the outbox relay in the same process"},
			&cli.BoolFlag{Name: "migrate", Usage: "apply migrations before serving"},
			&cli.StringSliceFlag{Name: "seed-role", Usage: "tenant:user:name:role granted at startup, repeatable"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if c.Bool("migrate") && cfg.StoreDriver == config.StoreDriverPostgres {
				if err := runMigrations(cfg, logger, false); err != nil {
					return err
				}
			}
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()
			if err := seedRoles(ctx, rt.repos.UserDirectory, c.StringSlice("seed-role")); err != nil {
				return err
			}
			return serve(ctx, cfg, logger, rt, c.Bool("relay"))
		},
	}
}

// runtime bundles the store a process works against.
type runtime struct {
	repos  portsrepo.RepositoryProvider
	stores portsrepo.OutboxStoreFactory
	close  func()
}

func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using the in-memory store, state is lost on exit")
		store := memory.NewStore()
		return &runtime{repos: memory.NewRepositoryProvider(store), stores: store.OutboxStoreFactory(), close: func() {}}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	logger.Info("Database connection pool established.")
	return &runtime{
		repos:  pgsql.NewRepositoryProvider(dbPool),
		stores: pgsql.NewOutboxStoreFactory(dbPool),
		close:  func() { database.ClosePgxPool(dbPool) },
	}, nil
}

// runServe is the default action: serve with the relay enabled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, withRelay bool) error {
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()
	return serve(ctx, cfg, logger, rt, withRelay)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, rt *runtime, withRelay bool) error {
	stopTelemetry, err := startTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	container, err := services.NewContainer(&rt.repos, services.Options{
		Actors:         middleware.ContextActorProvider{},
		Clock:          utils.SystemClock{},
		IDs:            utils.UUIDGenerator{},
		Policy:         cfg.ApprovalPolicy,
		CacheSize:      cfg.QueryCacheSize,
		CacheTTL:       cfg.QueryCacheTTL,
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	})
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT %q: %w", cfg.RateLimit, err)
	}
	apiLimiter := limiter.New(limitermemory.NewStore(), rate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}
	handlers.RegisterRoutes(r, cfg, container, apiLimiter)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to run: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if withRelay {
		g.Go(func() error {
			return runRelay(gctx, cfg, logger, rt.stores)
		})
	}
	return g.Wait()
}

// seedRoles grants roles given as tenant:user:name:role.
func seedRoles(ctx context.Context, dir portsrepo.UserDirectoryFacade, entries []string) error {
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return fmt.Errorf("seed role %q: want tenant:user:name:role", entry)
		}
		ur := domain.UserRole{TenantID: parts[0], UserID: parts[1], UserName: parts[2], Role: parts[3]}
		if err := dir.GrantRole(ctx, ur); err != nil {
			return fmt.Errorf("seed role %q: %w", entry, err)
		}
	}
	return nil
}
