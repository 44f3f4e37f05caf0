package consumers

import (
	"context"
	"log/slog"

	"github.com/nats-io/stan.go"

	"tickbol/internal/config"
	"tickbol/internal/database"
	"tickbol/internal/messaging"
	"tickbol/internal/models"
	"tickbol/internal/repository"
	"tickbol/internal/service"
)

// ConsumerService subscribes to purchase lifecycle events and drives the
// notification dispatch flags. Subscriptions are durable, so restarts pick
// up where they left off.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	notifications := service.NewNotificationService(repos.Purchases)
	handlers := NewHandlers(repos, notifications)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subjects := map[string]stan.MsgHandler{
		models.EventPurchaseCreated:   cs.handlers.HandlePurchaseCreated,
		models.EventPaymentSubmitted:  cs.handlers.HandlePaymentSubmitted,
		models.EventPaymentVerified:   cs.handlers.HandlePaymentVerified,
		models.EventTicketsIssued:     cs.handlers.HandleTicketsIssued,
		models.EventPurchaseCompleted: cs.handlers.HandlePurchaseCompleted,
		models.EventPurchaseCancelled: cs.handlers.HandlePurchaseCancelled,
		models.EventTicketValidated:   cs.handlers.HandleTicketValidated,
	}

	for subject, handler := range subjects {
		if _, err := cs.nats.SubscribeQueue(subject, "consumers", handler); err != nil {
			return err
		}
	}

	slog.Info("All consumers started successfully", "subjects", len(subjects))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

// Repos exposes the repositories for the background jobs that share this
// process.
func (cs *ConsumerService) Repos() *repository.Repositories {
	return cs.repos
}

// NATS exposes the messaging client for the background jobs.
func (cs *ConsumerService) NATS() *messaging.NATSClient {
	return cs.nats
}
