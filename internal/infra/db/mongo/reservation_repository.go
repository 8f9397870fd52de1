package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelier/internal/domain/reservation"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

// blockingStatuses are the states that count against availability and that the
// ActiveByResource query must return.
var blockingStatuses = bson.A{
	string(reservation.StatusPending),
	string(reservation.StatusConfirmed),
	string(reservation.StatusCheckedIn),
}

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("reservations")}
}

func (r *ReservationRepository) ByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var rsv reservation.Reservation
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rsv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrNotFound
		}
		return nil, err
	}
	return &rsv, nil
}

// Save upserts the reservation guarded by the stored version. A matched filter
// bumps the version; a miss on an existing document means someone else wrote
// first.
func (r *ReservationRepository) Save(ctx context.Context, rsv *reservation.Reservation) error {
	filter := bson.M{"_id": rsv.ID, "version": rsv.Version}
	next := rsv.Version + 1
	update := bson.M{"$set": reservationUpdate(rsv, next)}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	rsv.Version = next
	return nil
}

func reservationUpdate(rsv *reservation.Reservation, version int64) bson.M {
	clone := *rsv
	clone.Version = version
	doc := bson.M{}
	raw, err := bson.Marshal(&clone)
	if err == nil {
		_ = bson.Unmarshal(raw, &doc)
	}
	delete(doc, "_id")
	return doc
}

func (r *ReservationRepository) List(ctx context.Context, filter reservation.Filter) ([]*reservation.Reservation, error) {
	query := bson.M{}
	if filter.GuestID != "" {
		query["guest_id"] = filter.GuestID
	}
	if filter.ResourceID != "" {
		query["resource_id"] = filter.ResourceID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip(int64((page - 1) * filter.PerPage)).SetLimit(int64(filter.PerPage))
	}
	return r.find(ctx, query, opts)
}

func (r *ReservationRepository) ActiveByResource(ctx context.Context, resourceID string) ([]*reservation.Reservation, error) {
	query := bson.M{
		"resource_id": resourceID,
		"status":      bson.M{"$in": blockingStatuses},
	}
	return r.find(ctx, query, options.Find())
}

func (r *ReservationRepository) DueForRelease(ctx context.Context, before time.Time) ([]*reservation.Reservation, error) {
	query := bson.M{
		"status": bson.M{"$in": bson.A{
			string(reservation.StatusConfirmed),
			string(reservation.StatusCheckedIn),
		}},
		"range.end": bson.M{"$lte": before.UTC()},
	}
	return r.find(ctx, query, options.Find())
}

func (r *ReservationRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*reservation.Reservation, error) {
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*reservation.Reservation, 0)
	for cur.Next(ctx) {
		var rsv reservation.Reservation
		if err := cur.Decode(&rsv); err != nil {
			return nil, err
		}
		out = append(out, &rsv)
	}
	return out, cur.Err()
}
