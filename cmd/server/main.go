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

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/config"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/handler"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/middleware"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/service"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/websocket"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/logger"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tripplanner: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Server.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	policy, err := activitylist.ParseSortPolicy(cfg.Planner.SortPolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, ping, err := openStore(ctx, cfg, policy, log)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(store)
	itineraryRepo := repository.NewItineraryRepository(store)
	activityRepo := repository.NewActivityRepository(store, policy, log)
	checklistRepo := repository.NewChecklistRepository(store)
	expenseRepo := repository.NewExpenseRepository(store)
	referenceRepo := repository.NewReferenceRepository(store)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	userService := service.NewUserService(userRepo)
	itineraryService := service.NewItineraryService(itineraryRepo, log)
	activityService := service.NewActivityService(activityRepo, itineraryService, log)
	checklistService := service.NewChecklistService(checklistRepo, itineraryService)
	expenseService := service.NewExpenseService(expenseRepo, itineraryService)
	referenceService := service.NewReferenceService(referenceRepo, itineraryService)

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		Logger:         log,
	})
	wsMessageHandler := handler.NewWebSocketMessageHandler(store, itineraryService, policy, cfg.Server.RequestTimeout, log)
	wsManager.SetMessageHandler(wsMessageHandler)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		User:      handler.NewUserHandler(userService, log),
		Itinerary: handler.NewItineraryHandler(itineraryService, wsManager, log),
		Activity:  handler.NewActivityHandler(activityService, log),
		Checklist: handler.NewChecklistHandler(checklistService, log),
		Expense:   handler.NewExpenseHandler(expenseService, log),
		Reference: handler.NewReferenceHandler(referenceService, log),
		WebSocket: handler.NewWebSocketHandler(wsManager, wsMessageHandler, cfg.JWT.Secret,
			cfg.CORS.AllowedOrigins, cfg.WebSocket.ReadBufferSize, log),
		Health: handler.NewHealthHandler(ping, version, log),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	r := handler.NewRouter(handlers, handler.RouterOptions{
		JWTSecret:  cfg.JWT.Secret,
		Limiter:    limiter,
		Middleware: []mux.MiddlewareFunc{middleware.LoggerMiddleware(log)},
	})
	cors := middleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           cors(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsManager.Run(gctx)
	})

	g.Go(func() error {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("driver", cfg.Database.Driver),
			zap.Stringer("sort_policy", policy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// openStore connects the configured document store and returns a health
// check for it.
func openStore(ctx context.Context, cfg *config.Config, policy activitylist.SortPolicy, log *zap.Logger) (docstore.Client, handler.Pinger, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return docstore.NewMemoryStore(), nil, nil
	}

	client, err := kivik.New("couch", cfg.Database.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, cfg.Database.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
			return nil, nil, fmt.Errorf("failed to create database: %w", err)
		}
		log.Info("created database", zap.String("name", cfg.Database.Name))
	}

	store := docstore.NewCouchStore(client, cfg.Database.Name, log)
	if policy == activitylist.SortServerAssisted {
		if err := store.EnsureIndexes(ctx, activitylist.DayIndex); err != nil {
			return nil, nil, err
		}
	}

	ping := func(ctx context.Context) error {
		ok, err := client.Ping(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("couchdb not ready")
		}
		return nil
	}
	log.Info("connected to CouchDB",
		zap.String("host", cfg.Database.Host),
		zap.String("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
	)
	return store, ping, nil
}
