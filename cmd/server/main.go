package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/activity"
	"github.com/stanstork/tipboard-api/internal/authz"
	"github.com/stanstork/tipboard-api/internal/cache"
	"github.com/stanstork/tipboard-api/internal/config"
	"github.com/stanstork/tipboard-api/internal/handlers"
	"github.com/stanstork/tipboard-api/internal/middleware"
	"github.com/stanstork/tipboard-api/internal/migration"
	"github.com/stanstork/tipboard-api/internal/notification"
	"github.com/stanstork/tipboard-api/internal/realtime"
	"github.com/stanstork/tipboard-api/internal/repository"
	"github.com/stanstork/tipboard-api/internal/routes"
	"github.com/stanstork/tipboard-api/internal/temporal"
	tipworker "github.com/stanstork/tipboard-api/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	redis          *redis.Client
	temporalClient tc.Client
	logger         zerolog.Logger
	cache          cache.Store
	notifications  repository.NotificationRepository
	hub            *realtime.Hub
	dispatcher     notification.Service
	resolver       *notification.Resolver
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Redis backs the privileged-user and activity caches. The service keeps
	// working without it, recomputing on every read.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, caches will miss")
	}
	cancelPing()

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewLogAdapter(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	app := &application{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		temporalClient: temporalClient,
		logger:         logger,
	}
	app.initNotifications()

	// Start the Temporal worker and make sure the reminder schedule exists.
	temporalWorker := tipworker.Start(temporalClient, tipworker.Config{
		TaskQueue:     cfg.Temporal.TaskQueue,
		Notifications: app.dispatcher,
		Reviews:       repository.NewReviewRepository(db),
	}, logger)
	if err := temporal.EnsureReminderSchedule(context.Background(), temporalClient.ScheduleClient(), cfg.Temporal, logger); err != nil {
		logger.Error().Err(err).Msg("Failed to create review reminder schedule")
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker)

	logger.Info().Msg("Application terminated.")
}

// initNotifications builds the dispatcher with its realtime publishers.
func (app *application) initNotifications() {
	app.hub = realtime.NewHub(app.config.Realtime, app.logger)
	publishers := []notification.Publisher{app.hub}

	if app.config.Firebase.Enabled {
		fcm, err := notification.NewFirebasePublisher(context.Background(), app.config.Firebase, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to configure Firebase publisher")
		}
		publishers = append(publishers, fcm)
	}

	app.cache = cache.NewRedisStore(app.redis, "tipboard:")
	app.notifications = repository.NewNotificationRepository(app.db)
	app.resolver = notification.NewResolver(
		repository.NewUserRepository(app.db),
		repository.NewOwnershipRepository(app.db),
		app.cache,
		app.logger,
	)
	app.dispatcher = notification.NewService(app.notifications, app.logger, publishers...)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	generator := notification.NewGenerator(app.resolver, app.logger)
	enqueuer := temporal.NewEnqueuer(app.temporalClient, app.config.Temporal.TaskQueue, app.logger)
	pipeline := notification.NewPipeline(generator, app.resolver, enqueuer, app.logger)
	aggregator := activity.NewAggregator(app.notifications, app.cache, app.config.Feed.CacheTTL, app.logger)

	return routes.NewRouter(routes.Handlers{
		Auth:          authz.NewAuthenticator(app.config.JWTSecret),
		Notifications: handlers.NewNotificationHandler(app.dispatcher, app.logger),
		Activity:      handlers.NewActivityHandler(aggregator, app.logger),
		Events:        handlers.NewEventHandler(pipeline, app.resolver, app.logger),
		Realtime:      realtime.NewHandler(app.hub, app.config.AllowedOrigins).ServeWS,
	})
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker) {
	logger := app.logger
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
