package jobs

import (
	"context"
	"log/slog"
	"time"

	"tickbol/internal/service"
)

// PurchaseExpirationJob cancels purchases that sat in pending_payment past
// the configured timeout.
type PurchaseExpirationJob struct {
	purchases *service.PurchaseService
	timeout   time.Duration
	interval  time.Duration
	ticker    *time.Ticker
	done      chan bool
}

func NewPurchaseExpirationJob(purchases *service.PurchaseService, timeout, interval time.Duration) *PurchaseExpirationJob {
	return &PurchaseExpirationJob{
		purchases: purchases,
		timeout:   timeout,
		interval:  interval,
		done:      make(chan bool),
	}
}

// Start begins the periodic sweep. The first check runs immediately.
func (j *PurchaseExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting purchase expiration job",
		"check_interval", j.interval.String(), "timeout", j.timeout.String())

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Purchase expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *PurchaseExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PurchaseExpirationJob) sweep(ctx context.Context) {
	before := time.Now().Add(-j.timeout)

	expired, err := j.purchases.ExpirePending(ctx, before)
	if err != nil {
		slog.Error("Failed to expire pending purchases", "error", err)
		return
	}

	if expired > 0 {
		slog.Info("Expired stale pending purchases", "count", expired)
	}
}
