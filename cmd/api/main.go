package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hj567/ub-unsecured-onboard/internal/cache"
	"github.com/Hj567/ub-unsecured-onboard/internal/config"
	"github.com/Hj567/ub-unsecured-onboard/internal/handler"
	"github.com/Hj567/ub-unsecured-onboard/internal/integrations/keyrate"
	"github.com/Hj567/ub-unsecured-onboard/internal/jobs"
	"github.com/Hj567/ub-unsecured-onboard/internal/repository"
	"github.com/Hj567/ub-unsecured-onboard/internal/service"
	"github.com/Hj567/ub-unsecured-onboard/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	repo := repository.NewRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Schedule previews go to Redis when configured, otherwise stay in process
	var scheduleCache cache.Cache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr)
		if err := redisCache.Ping(context.Background()); err != nil {
			logger.Fatalf("Failed to ping redis: %v", err)
		}
		defer redisCache.Close()
		scheduleCache = redisCache
	}

	// Initialize layers
	rates := keyrate.NewClient(cfg, logger)
	sender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, scheduleCache, rates, sender, logger, cfg)
	h := handler.NewHandler(svc, logger)
	router := handler.NewRouter(h, cfg, logger)

	reminders, err := jobs.NewReminders(cfg.ReminderCron, svc, logger)
	if err != nil {
		logger.Fatalf("Failed to schedule reminders: %v", err)
	}
	reminders.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Errorf("Server failed: %v", err)
	case <-quit:
		logger.Info("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	reminders.Stop(ctx)

	logger.Info("Server exited")
}
