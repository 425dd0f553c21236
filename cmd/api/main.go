// @title           Sweet Shop API
// @version         1.0
// @description     Sweet shop inventory with JWT auth and role-based access.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/inventory-service/internal/api"
	"github.com/sweetshop/inventory-service/internal/api/handler"
	"github.com/sweetshop/inventory-service/internal/core/ports"
	"github.com/sweetshop/inventory-service/internal/core/service"
	"github.com/sweetshop/inventory-service/internal/infrastructure/db/memory"
	mongodb "github.com/sweetshop/inventory-service/internal/infrastructure/db/mongo"
	rediscache "github.com/sweetshop/inventory-service/internal/infrastructure/db/redis"
	"github.com/sweetshop/inventory-service/internal/infrastructure/queue"
	"github.com/sweetshop/inventory-service/internal/pkg/config"
	"github.com/sweetshop/inventory-service/pkg/logger"

	_ "github.com/sweetshop/inventory-service/docs"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	users  ports.UserRepository
	items  ports.ItemRepository
	events ports.StockEventRepository
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "sweetshop-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]handler.DependencyCheck{}
	var st stores

	switch cfg.StoreDriver {
	case "memory":
		st = stores{
			users:  memory.NewUserRepository(),
			items:  memory.NewItemRepository(),
			events: memory.NewStockEventRepository(),
		}
		log.Warn().Msg("using in-memory store; data is lost on restart")
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				log.Error().Err(err).Msg("mongo disconnect failed")
			}
		}()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		st = stores{
			users:  mongodb.NewUserRepository(db),
			items:  mongodb.NewItemRepository(db),
			events: mongodb.NewStockEventRepository(db),
		}
		checks["mongodb"] = handler.MongoCheck(db)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	// Stock audit events are recorded asynchronously, sharded by item.
	eventService := service.NewStockEventService(st.events, log)
	dispatcher := queue.NewDispatcher(cfg.EventWorkers, eventService, log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	opts := []service.InventoryOption{service.WithStockEvents(dispatcher)}
	if cfg.Redis.Enabled {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, service.WithCatalogCache(rediscache.NewCatalogCache(rdb, cfg.Redis.CacheTTL)))
		checks["redis"] = handler.RedisCheck(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("catalog cache enabled")
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	authService := service.NewAuthService(st.users, service.NewBcryptHasher(), tokens, cfg.TokenTTL, log)
	inventoryService := service.NewInventoryService(st.items, log, opts...)

	if cfg.Admin.Email != "" {
		if err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Dependencies{
		Auth:         authService,
		Inventory:    inventoryService,
		Logger:       log,
		CORSOrigins:  cfg.CORSOrigins,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
