// Package syncworker retries external calendar pushes that failed after a
// booking change was committed.
package syncworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotsync/services/booking-service/internal/model"
)

// Syncer is implemented by booking.Service.
type Syncer interface {
	FailedSyncs(ctx context.Context, limit int) ([]model.Booking, error)
	Resync(ctx context.Context, b model.Booking) error
}

type Worker struct {
	syncer    Syncer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Config struct {
	Interval  time.Duration
	BatchSize int
}

func New(syncer Syncer, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	return &Worker{
		syncer:    syncer,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("sync retry batch failed", "err", err)
			}
		}
	}
}

// ProcessBatch retries one batch and reports how many bookings synced.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	pending, err := w.syncer.FailedSyncs(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, b := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.syncer.Resync(ctx, b); err != nil {
			w.logger.Warn("sync retry failed", "booking_id", b.ID, "err", err)
			continue
		}
		synced++
	}
	if len(pending) > 0 {
		w.logger.Info("sync retry batch done", "attempted", len(pending), "synced", synced)
	}
	return synced, nil
}
