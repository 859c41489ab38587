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

	"github.com/mlahtinen/gradery/internal/api"
	"github.com/mlahtinen/gradery/internal/config"
	"github.com/mlahtinen/gradery/internal/courseconfig"
	"github.com/mlahtinen/gradery/internal/grading"
	"github.com/mlahtinen/gradery/internal/i18n"
	"github.com/mlahtinen/gradery/internal/queue"
	"github.com/mlahtinen/gradery/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("graderd error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Course configuration store
	store := courseconfig.New(cfg.CoursesPath, cfg.DefaultLang,
		courseconfig.WithLogger(logger))

	// Localized grading messages
	messages, err := i18n.New()
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	engineOpts := []grading.Option{grading.WithLogger(logger)}

	// RabbitMQ producer for file grading jobs (optional)
	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer conn.Close()
		producer := queue.NewProducer(conn, logger)
		engineOpts = append(engineOpts, grading.WithFileDispatcher(producer))
		logger.Info("file grading dispatch enabled")
	}

	engine := grading.New(messages, cfg.GraderSecret, engineOpts...)

	// Submission storage (optional)
	var subs storage.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		subs, err = storage.Open(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer subs.Close()
		logger.Info("submission persistence enabled")
	}

	router := api.NewRouter(&api.App{
		Store:       store,
		Engine:      engine,
		Submissions: subs,
		Debug:       cfg.Debug,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	logger.Info("starting graderd",
		"port", cfg.Port,
		"courses_path", cfg.CoursesPath,
		"default_lang", cfg.DefaultLang,
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("graderd stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
