package analytics

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoSink stores events in a MongoDB collection.
type MongoSink struct {
	coll *mongo.Collection
}

// NewMongoSink panics if coll is nil.
func NewMongoSink(coll *mongo.Collection) *MongoSink {
	if coll == nil {
		panic("analytics: mongo collection cannot be nil")
	}
	return &MongoSink{coll: coll}
}

func (s *MongoSink) Store(ctx context.Context, event Event) error {
	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		return errors.Join(ErrFailedToStore, err)
	}
	return nil
}

// StoreBatch inserts unordered so one duplicate does not block the rest.
func (s *MongoSink) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	if _, err := s.coll.InsertMany(ctx, events, options.InsertMany().SetOrdered(false)); err != nil {
		return errors.Join(ErrFailedToStore, err)
	}
	return nil
}
