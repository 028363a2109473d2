package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dqengine/internal"
	"dqengine/internal/config"
	"dqengine/internal/container"
)

func main() {
	// Load application configuration (.env is optional)
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer c.Close()

	if err := c.InitWithDatabase(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := c.Server().Start(ctx); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}
