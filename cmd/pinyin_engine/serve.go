package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-pinyin-engine/api"
	"github.com/gcbaptista/go-pinyin-engine/internal/analytics"
	"github.com/gcbaptista/go-pinyin-engine/internal/engine"
	"github.com/gcbaptista/go-pinyin-engine/internal/observe"
)

const (
	shutdownTimeout   = 10 * time.Second
	analyticsDataFile = "analytics.gob"
)

var port string

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides the config file)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port != "" {
		cfg.Port = port
	}

	metrics, shutdownMetrics, err := observe.InitProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Warn("Metrics shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Using data directory", zap.String("data_dir", cfg.DataDir))
	eng := engine.NewEngine(engine.Options{
		DataDir:          cfg.DataDir,
		Defaults:         cfg.Defaults,
		BatchConcurrency: cfg.Decode.BatchConcurrency,
		MaxWorkers:       cfg.Jobs.MaxWorkers,
		Logger:           logger.Named("engine"),
		Metrics:          metrics,
	})
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("Engine shutdown failed", zap.Error(err))
		}
	}()

	usage := analytics.NewService(eng, filepath.Join(cfg.DataDir, analyticsDataFile), logger.Named("analytics"))
	defer func() {
		if err := usage.Flush(); err != nil {
			logger.Warn("Failed to save analytics", zap.Error(err))
		}
	}()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, eng, api.RouterOptions{
		Logger:          logger.Named("http"),
		Metrics:         metrics,
		Analytics:       usage,
		MaxRequestBytes: cfg.MaxRequestBytes,
		ServeMetrics:    true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
