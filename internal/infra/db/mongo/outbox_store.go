package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelier/internal/app/outbox"
)

// OutboxStore persists event records alongside the aggregates so the relay can
// publish them after the fact.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("outbox")}
}

type outboxDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Payload     []byte    `bson:"payload"`
	Aggregate   string    `bson:"aggregate"`
	OccurredAt  time.Time `bson:"occurred_at"`
	Published   bool      `bson:"published"`
	PublishedAt time.Time `bson:"published_at,omitempty"`
}

func (s *OutboxStore) Add(ctx context.Context, record outbox.EventRecord) error {
	doc := outboxDocument{
		ID:         record.ID,
		Name:       record.Name,
		Payload:    record.Payload,
		Aggregate:  record.Aggregate,
		OccurredAt: record.OccurredAt.UTC(),
	}
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true))
	return err
}

func (s *OutboxStore) Pending(ctx context.Context, limit int) ([]outbox.EventRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.col.Find(ctx, bson.M{"published": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]outbox.EventRecord, 0, limit)
	for cur.Next(ctx) {
		var doc outboxDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, outbox.EventRecord{
			ID:         doc.ID,
			Name:       doc.Name,
			Payload:    doc.Payload,
			Aggregate:  doc.Aggregate,
			OccurredAt: doc.OccurredAt,
		})
	}
	return out, cur.Err()
}

func (s *OutboxStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.col.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"published": true, "published_at": time.Now().UTC()}})
	return err
}

var _ outbox.Outbox = (*OutboxStore)(nil)
