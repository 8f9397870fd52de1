package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotelier/internal/app/outbox"
	"hotelier/internal/infra/storage/memory"
)

type fakePublisher struct {
	published []string
	fail      map[string]bool
}

func (f *fakePublisher) Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error {
	if f.fail[key] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, key)
	return nil
}

func addRecord(t *testing.T, box outbox.Outbox, id, aggregate string) {
	t.Helper()
	err := box.Add(context.Background(), outbox.EventRecord{
		ID:         id,
		Name:       "reservation.created",
		Payload:    []byte(`{}`),
		Aggregate:  aggregate,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestRelayPublishesAndMarks(t *testing.T) {
	box := memory.NewOutbox()
	pub := &fakePublisher{}
	relay := &Relay{Box: box, Producer: pub}

	addRecord(t, box, "ev-1", "rsv-1")
	addRecord(t, box, "ev-2", "rsv-2")

	if err := relay.RelayOnce(context.Background()); err != nil {
		t.Fatalf("RelayOnce: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published = %d, want 2", len(pub.published))
	}
	pending, _ := box.Pending(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("pending after relay = %d, want 0", len(pending))
	}
}

func TestRelayKeepsFailedRecordsPending(t *testing.T) {
	box := memory.NewOutbox()
	pub := &fakePublisher{fail: map[string]bool{"rsv-2": true}}
	relay := &Relay{Box: box, Producer: pub}

	addRecord(t, box, "ev-1", "rsv-1")
	addRecord(t, box, "ev-2", "rsv-2")

	if err := relay.RelayOnce(context.Background()); err != nil {
		t.Fatalf("RelayOnce: %v", err)
	}
	pending, _ := box.Pending(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != "ev-2" {
		t.Fatalf("pending = %+v, want only ev-2", pending)
	}

	// Broker recovers; the stuck record drains on the next pass.
	pub.fail = nil
	if err := relay.RelayOnce(context.Background()); err != nil {
		t.Fatalf("second RelayOnce: %v", err)
	}
	pending, _ = box.Pending(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("pending after recovery = %d, want 0", len(pending))
	}
}
