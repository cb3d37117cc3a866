// Package main runs the book catalog HTTP service.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shelfworks/catalog-service/internal/app/runtime"
)

func main() {
	// A missing .env is fine; the environment still wins.
	_ = godotenv.Load()

	app, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("Failed to initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}
