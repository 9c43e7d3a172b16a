package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/notjira/internal/api/http"
	"github.com/spec-kit/notjira/internal/api/http/handlers"
	"github.com/spec-kit/notjira/internal/board"
	"github.com/spec-kit/notjira/internal/config"
	"github.com/spec-kit/notjira/internal/events"
	"github.com/spec-kit/notjira/internal/identity"
	"github.com/spec-kit/notjira/internal/observability"
	"github.com/spec-kit/notjira/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boardStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer boardStore.Close()

	identityService := identity.NewService(cfg.Auth, boardStore, logger)

	dispatcher := events.NewInMemoryDispatcher()
	registerAuditListeners(dispatcher, logger)

	manager := board.NewManager(board.Dependencies{
		Store:        boardStore,
		Dispatcher:   dispatcher,
		Logger:       logger,
		WriteTimeout: cfg.Board.WriteTimeout(),
	})
	if err := manager.Start(ctx); err != nil {
		logger.Fatal("failed to start board manager", zap.Error(err))
	}
	defer manager.Close()

	// The gateway serves many users through one shared manager, so a single
	// caller's sign-in or sign-out must not re-initialize it. SessionChanged
	// is for embedders running one manager per interactive session; here the
	// state listener only audits the transitions.
	identityService.OnStateChange(func(id *identity.Identity) {
		if id != nil {
			logger.Info("session opened", zap.String("uid", id.UID))
			return
		}
		logger.Info("session closed")
	})

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, boardStore),
		Auth:        handlers.NewAuthHandler(identityService),
		Board:       handlers.NewBoardHandler(manager, metrics),
		Profile:     handlers.NewProfileHandler(manager),
		RequireUser: identity.RequireUser(identityService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openStore builds the configured store backend. The memory backend serves
// development and tests; redis and postgres are the deployable ones.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		return store.NewRedisStore(cfg.Redis, logger), nil
	case config.StoreBackendPostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := store.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// registerAuditListeners logs every board event as an audit trail entry.
func registerAuditListeners(dispatcher events.Dispatcher, logger *zap.Logger) {
	audit := func(ctx context.Context, event events.Event) error {
		logger.Info("board event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("actor_uid", event.Actor.UID),
			zap.Time("timestamp", event.Timestamp),
		)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, audit)
	dispatcher.Subscribe(events.EventTicketMoved, audit)
	dispatcher.Subscribe(events.EventTicketDeleted, audit)
	dispatcher.Subscribe(events.EventProfileUpdated, audit)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
