package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrental/config"
	"carrental/di"
	"carrental/shared/logger"

	"github.com/rs/zerolog/log"
)

const flushTimeout = 5 * time.Second

func main() {
	cfg := config.Get()

	logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := di.InitializeService()

	go app.Reaper.Start(ctx)

	app.HTTP.Serve()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := app.Otel.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
}
