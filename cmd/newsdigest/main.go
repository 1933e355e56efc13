// Command newsdigest performs one digest run and exits.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"HKNewsDigest/internal/app"
	"HKNewsDigest/internal/config"
	"HKNewsDigest/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		cfg = config.LoadPath(*configPath)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
