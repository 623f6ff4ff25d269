package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carlamarinaap/go-shop/internal/cache"
	"github.com/carlamarinaap/go-shop/internal/cart"
	"github.com/carlamarinaap/go-shop/internal/catalog"
	"github.com/carlamarinaap/go-shop/internal/checkout"
	"github.com/carlamarinaap/go-shop/internal/config"
	"github.com/carlamarinaap/go-shop/internal/httpapi"
	"github.com/carlamarinaap/go-shop/internal/metrics"
	"github.com/carlamarinaap/go-shop/internal/publisher"
	"github.com/carlamarinaap/go-shop/internal/repository"
	"github.com/carlamarinaap/go-shop/internal/ticket"
)

const requestTimeout = 30 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setLogLevel(cfg.LogLevel)

	log.Info().Str("appName", cfg.AppName).Msg("Application starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB: products, carts, users
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDB)
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	productRepo := repository.NewMongoProductRepository(db)
	cartRepo := repository.NewMongoCartRepository(db)
	userRepo := repository.NewMongoUserRepository(db)

	if ic, ok := productRepo.(repository.IndexCreator); ok {
		if err := ic.CreateIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create product indexes")
		}
	}

	// Postgres: tickets + outbox
	cred := &ticket.Credentials{
		Host:              cfg.PGHost,
		Port:              cfg.PGPort,
		User:              cfg.PGUser,
		Password:          cfg.PGPassword,
		DBName:            cfg.PGDBName,
		MigrationsDirPath: cfg.PGMigrationsPath,
	}
	ticketStore, err := ticket.NewPostgresStore(cred)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer ticketStore.Close()
	if err := ticketStore.RunMigrations(cred); err != nil {
		log.Fatal().Err(err).Msg("Failed to run ticket migrations")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	productCache := cache.NewRedisCache(redisClient)

	checkoutMetrics := metrics.NewCheckoutMetrics()

	catalogService := catalog.NewService(productRepo, productCache, cfg.BaseURL)
	cartService := cart.NewService(cartRepo)
	engine := checkout.NewEngine(productRepo, cartRepo, userRepo, ticketStore, productCache, checkoutMetrics)

	poller := publisher.NewOutboxPoller(ticketStore, cfg.Brokers()...)
	defer poller.Close()
	go poller.Run(ctx)

	productHandler := httpapi.NewProductHandler(catalogService, requestTimeout)
	cartHandler := httpapi.NewCartHandler(cartService, engine, requestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httpapi.RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{product_id}", productHandler.Get)
			r.Put("/{product_id}", productHandler.Update)
			r.Delete("/{product_id}", productHandler.Delete)
		})
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cartHandler.Create)
			r.Get("/{cart_id}", cartHandler.Get)
			r.Put("/{cart_id}", cartHandler.ReplaceLines)
			r.Delete("/{cart_id}", cartHandler.Clear)
			r.Post("/{cart_id}/products/{product_id}", cartHandler.AddProduct)
			r.Put("/{cart_id}/products/{product_id}", cartHandler.SetQuantity)
			r.Delete("/{cart_id}/products/{product_id}", cartHandler.RemoveProduct)
			r.Post("/{cart_id}/purchase", cartHandler.Purchase)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "go-shop"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
