package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/handlers"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/orders"
	"storefront/internal/products"
	"storefront/internal/promotions"
	"storefront/internal/stores/kafka"
	"storefront/internal/stores/postgres"
	"storefront/internal/users"
	"storefront/pkg/logkey"

	"github.com/joho/godotenv"
)

func main() {
	if err := startApp(); err != nil {
		slog.Error("failed to start service", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	// .env is for local development; real deployments set the environment
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	keys, err := auth.NewKeys(os.Getenv("JWT_SECRET"))
	if err != nil {
		return fmt.Errorf("initializing token keys: %w", err)
	}

	usersConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	productsConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	promotionsConf, err := promotions.NewConf(db)
	if err != nil {
		return err
	}

	// event publishing is optional; without brokers orders still work
	var kafkaConf *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err = kafka.NewConf(brokers)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer kafkaConf.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	h, err := handlers.NewHandler(usersConf, productsConf, cartConf, ordersConf, promotionsConf, kafkaConf, keys)
	if err != nil {
		return fmt.Errorf("building handlers: %w", err)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handlers.API(h),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("Port", port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("Signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("shutdown complete")
	}

	return nil
}
