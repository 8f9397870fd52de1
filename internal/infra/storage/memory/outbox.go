package memory

import (
	"context"
	"sync"

	appoutbox "hotelier/internal/app/outbox"
)

// Outbox keeps event records in memory until the relay marks them published.
type Outbox struct {
	mu        sync.Mutex
	records   []appoutbox.EventRecord
	published map[string]bool
}

func NewOutbox() *Outbox {
	return &Outbox{published: make(map[string]bool)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Pending(ctx context.Context, limit int) ([]appoutbox.EventRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, limit)
	for _, rec := range o.records {
		if o.published[rec.ID] {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, ids []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.published[id] = true
	}
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
