package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickbol/cmd/consumers/jobs"
	"tickbol/internal/config"
	"tickbol/internal/consumers"
	"tickbol/internal/logger"
	"tickbol/internal/service"
)

func main() {
	log.Println("Starting consumers service...")

	cfg := config.Load()
	cfg.NATS.ClientID = "tickbol-consumers"

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	// The expiration sweep shares this process with the consumers.
	services := service.NewServices(consumerService.Repos(), consumerService.NATS(), cfg)
	expirationJob := jobs.NewPurchaseExpirationJob(
		services.Purchases,
		cfg.Expiry.PendingTimeout,
		cfg.Expiry.CheckInterval,
	)

	jobCtx, jobCancel := context.WithCancel(context.Background())
	expirationJob.Start(jobCtx)

	log.Println("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down consumers service...")

	expirationJob.Stop()
	jobCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Consumers service stopped")
}
