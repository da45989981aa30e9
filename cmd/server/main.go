package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"communityhub/pkg/config"
	"communityhub/pkg/logger"
	"communityhub/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info").Sugar()
		bootLog.Fatalw("Failed to load configuration", "path", *configPath, "error", err)
	}

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(tracing.Config{
			Enabled:     true,
			ServiceName: cfg.Tracing.ServiceName,
			JaegerURL:   cfg.Tracing.JaegerURL,
			Environment: cfg.Tracing.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			log.Warnw("Tracing disabled, exporter setup failed", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					log.Warnw("Tracer shutdown failed", "error", err)
				}
			}()
		}
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg, zapLogger, prometheus.NewRegistry())
	if err != nil {
		log.Fatalw("Failed to initialise server", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Starting community hub server", "address", cfg.Server.Address, "chat_store", a.repos.ChatStore())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down community hub server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// hijacked websocket connections are not covered by Shutdown
	a.chat.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	cancel()
	a.stop()
	log.Info("Community hub server stopped")
}
