package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/danieliser/edd-utility-functions/internal/adapter/events"
	"github.com/danieliser/edd-utility-functions/internal/adapter/handler"
	"github.com/danieliser/edd-utility-functions/internal/adapter/linker"
	"github.com/danieliser/edd-utility-functions/internal/adapter/storage"
	"github.com/danieliser/edd-utility-functions/internal/config"
	"github.com/danieliser/edd-utility-functions/internal/core/service"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Payment store
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}
	logger.Info("connected to mysql")

	// Shared cache + event subscription
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to redis")

	lk, err := linker.NewSignedLinker(cfg.LinkSecret, cfg.LinkBaseURL, cfg.LinkTokenTTL)
	if err != nil {
		return fmt.Errorf("init linker: %w", err)
	}

	entitlements := service.NewEntitlementService(
		storage.NewRedisAdapter(rdb),
		storage.NewMySQLAdapter(db),
		lk,
		cfg.LicensedURLTTL,
		logger,
	)

	// Event consumer
	consumer := events.NewConsumer(rdb, entitlements, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil {
			logger.Error("event consumer stopped", "error", err.Error())
		}
	}()

	// HTTP server
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler.NewRouter(handler.NewHTTPHandler(entitlements)),
	}

	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err.Error())
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	cancel()
	wg.Wait()
	logger.Info("event consumer stopped")

	return nil
}
