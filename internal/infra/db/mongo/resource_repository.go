package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelier/internal/domain/resource"
)

type ResourceRepository struct {
	col *mongo.Collection
}

func NewResourceRepository(db *mongo.Database) *ResourceRepository {
	return &ResourceRepository{col: db.Collection("resources")}
}

func (r *ResourceRepository) ByID(ctx context.Context, id string) (*resource.Resource, error) {
	var res resource.Resource
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, resource.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ResourceRepository) Save(ctx context.Context, res *resource.Resource) error {
	filter := bson.M{"_id": res.ID, "version": res.Version}
	next := res.Version + 1
	update := bson.M{"$set": resourceUpdate(res, next)}
	opts := options.Update().SetUpsert(true)
	out, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if out.MatchedCount == 0 && out.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = next
	return nil
}

func resourceUpdate(res *resource.Resource, version int64) bson.M {
	clone := *res
	clone.Version = version
	doc := bson.M{}
	raw, err := bson.Marshal(&clone)
	if err == nil {
		_ = bson.Unmarshal(raw, &doc)
	}
	delete(doc, "_id")
	return doc
}

func (r *ResourceRepository) List(ctx context.Context) ([]*resource.Resource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*resource.Resource, 0)
	for cur.Next(ctx) {
		var res resource.Resource
		if err := cur.Decode(&res); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, cur.Err()
}
