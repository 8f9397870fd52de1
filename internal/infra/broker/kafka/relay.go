package kafka

import (
	"context"
	"log/slog"
	"time"

	"hotelier/internal/app/outbox"
)

// publisher is the slice of Producer the relay needs; tests swap in a fake.
type publisher interface {
	Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error
}

// Relay drains the outbox and publishes each record through the producer.
// A record stays pending until its publish succeeds, so a broker outage
// only delays delivery.
type Relay struct {
	Box       outbox.Outbox
	Producer  publisher
	Logger    *slog.Logger
	Interval  time.Duration
	BatchSize int
}

const (
	defaultInterval  = 500 * time.Millisecond
	defaultBatchSize = 50
)

func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RelayOnce(ctx); err != nil && r.Logger != nil {
				r.Logger.Warn("outbox relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) RelayOnce(ctx context.Context) error {
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}
	records, err := r.Box.Pending(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	published := make([]string, 0, len(records))
	for _, rec := range records {
		headers := map[string]string{
			"content-type": "application/json",
			"event-name":   rec.Name,
		}
		if err := r.Producer.Publish(ctx, rec.Aggregate, rec.Payload, headers); err != nil {
			if r.Logger != nil {
				r.Logger.Warn("publish failed, record stays pending", "event", rec.Name, "id", rec.ID, "error", err)
			}
			continue
		}
		published = append(published, rec.ID)
	}
	if len(published) == 0 {
		return nil
	}
	return r.Box.MarkPublished(ctx, published)
}
