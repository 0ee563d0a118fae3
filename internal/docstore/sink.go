package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sink is the write side of a target collection as seen by the loader.
type Sink interface {
	// Name identifies the target, e.g. for run locks and logs.
	Name() string
	// Clear removes every document and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
	// InsertBatch inserts docs in order and returns how many were inserted.
	InsertBatch(ctx context.Context, docs []any) (int, error)
}

// CollectionSink writes to a MongoDB collection.
type CollectionSink struct {
	coll *mongo.Collection
}

// NewCollectionSink wraps coll.
func NewCollectionSink(coll *mongo.Collection) *CollectionSink {
	return &CollectionSink{coll: coll}
}

func (s *CollectionSink) Name() string { return s.coll.Name() }

func (s *CollectionSink) Clear(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *CollectionSink) InsertBatch(ctx context.Context, docs []any) (int, error) {
	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if res != nil {
		return len(res.InsertedIDs), err
	}
	return 0, err
}
