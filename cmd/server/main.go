package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/homestash/homestash-server/internal/config"
	"github.com/homestash/homestash-server/internal/database"
	"github.com/homestash/homestash-server/internal/handler"
	"github.com/homestash/homestash-server/internal/jobs"
	"github.com/homestash/homestash-server/internal/label"
	"github.com/homestash/homestash-server/internal/middleware"
	"github.com/homestash/homestash-server/internal/redis"
	"github.com/homestash/homestash-server/internal/repository"
	"github.com/homestash/homestash-server/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewAccountRepository(db.DB)
	roomRepo := repository.NewRoomRepository(db.DB)
	furnRepo := repository.NewFurnitureRepository(db.DB)
	cellRepo := repository.NewStorageCellRepository(db.DB)
	itemRepo := repository.NewItemRepository(db.DB)
	labelRepo := repository.NewLabelRepository(db.DB)

	codec := label.NewCodec(cfg.LabelSizePixels)
	sessionStore := redis.NewSessionStore(redisClient, cfg.PairingTTL())

	allocator := service.NewAllocatorService(db, itemRepo, roomRepo, furnRepo, cellRepo)
	accountService := service.NewAccountService(accountRepo)
	itemService := service.NewItemService(allocator, itemRepo, labelRepo, codec)
	storageService := service.NewStorageService(allocator, roomRepo, furnRepo, cellRepo, labelRepo, codec)
	pairingService := service.NewPairingService(db, sessionStore, itemRepo, cellRepo)

	authMiddleware := middleware.NewAuthMiddleware(accountRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	accountHandler := handler.NewAccountHandler(accountService)
	itemHandler := handler.NewItemHandler(itemService)
	storageHandler := handler.NewStorageHandler(storageService)
	pairingHandler := handler.NewPairingHandler(pairingService, codec)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/accounts", func(r chi.Router) {
		r.Mount("/", accountHandler.Routes())
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/items", itemHandler.Routes())
		r.Mount("/rooms", storageHandler.RoomRoutes())
		r.Mount("/furniture", storageHandler.FurnitureRoutes())
		r.Mount("/storage-cells", storageHandler.CellRoutes())
		r.Mount("/pairing", pairingHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(labelRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
