package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/filterplane/internal/app"
	"github.com/ignite/filterplane/internal/platform/config"
	"github.com/ignite/filterplane/internal/platform/logger"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("filterplane: load config", "error", err.Error())
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactPII)

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("filterplane: wire application", "error", err.Error())
		cancel()
		os.Exit(1)
	}

	go a.Run(ctx)
	logger.Info("filterplane: running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("filterplane: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Error("filterplane: shutdown", "error", err.Error())
	}

	logger.Info("filterplane: stopped")
}
