package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"catalog/config"
	"catalog/controllers"
	"catalog/database"
	"catalog/messaging"
	"catalog/middleware"
	"catalog/models"
	"catalog/repository"
	"catalog/routes"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	store, err := database.Connect(connectCtx, cfg.MongoURL, cfg.DatabaseName)
	connectCancel()
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to mongo", "database", cfg.DatabaseName)

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Error("connect amqp", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		rabbit, err := messaging.NewRabbitPublisher(conn, models.EventsQueue)
		if err != nil {
			logger.Error("init publisher", "error", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		logger.Warn("AMQP_URL not set, change events disabled")
	}

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_mutations_total",
		Help: "Total resource mutations by resource type and event.",
	}, []string{"resource", "event"})
	prometheus.MustRegister(mutations)

	productRepo := repository.New(store.Collection(database.ProductsCollection), cfg.QueryTimeout)
	bookRepo := repository.New(store.Collection(database.BooksCollection), cfg.QueryTimeout)

	deps := routes.Deps{
		Products:  controllers.NewResourceController(productRepo, "product", "products", logger, publisher, mutations),
		Books:     controllers.NewResourceController(bookRepo, "book", "books", logger, publisher, mutations),
		SecretKey: cfg.SecretKey,
		Health:    store,
	}
	if cfg.AuthEnabled() {
		deps.Auth = controllers.NewAuthController(cfg.SecretKey, cfg.AdminKeyHash, cfg.TokenExpiry)
	} else {
		logger.Warn("SECRET_KEY not set, running without auth")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	_ = router.SetTrustedProxies(nil)
	routes.RegisterRoutes(router, deps)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog service started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("close database", "error", err)
	}
	logger.Info("catalog service stopped")
}
