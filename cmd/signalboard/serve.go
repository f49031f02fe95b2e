package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/signalboard/internal/api"
	"github.com/newthinker/signalboard/internal/app"
	"github.com/newthinker/signalboard/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signalboard server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.Must(debug || cfg.Server.Mode == "debug")
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	a := app.New(cfg, log)
	defer a.Close()

	if cfg.Cache.Enabled {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.CheckCache(pingCtx); err != nil {
			// The cached source falls through to the backend on cache errors.
			log.Warn("analysis cache unreachable", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		}
		cancel()
	}

	log.Info("starting signalboard server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		TemplatesDir: cfg.Server.TemplatesDir,
		MetricsPath:  metricsPath,
	}, api.Dependencies{
		Board:        a.Board(),
		Source:       a.Source(),
		Metrics:      a.Metrics(),
		DefaultLimit: cfg.Backend.DefaultLimit,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	go func() {
		if err := a.Start(context.Background()); err != nil && err != context.Canceled {
			log.Error("refresh loop error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down signalboard server")
	a.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
