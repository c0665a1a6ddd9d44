// Package mongostore implements storage.Backend over MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the default collection name used to store entries.
const DefaultCollection = "cachegate_entries"

type entryDoc struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Backend is a storage.Backend backed by a MongoDB collection.
type Backend struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// New wraps an existing *mongo.Collection.
func New(collection *mongo.Collection, timeout time.Duration) *Backend {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Backend{collection: collection, timeout: timeout}
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var doc entryDoc
	err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongostore: get %q: %w", key, err)
	}
	return doc.Data, true, nil
}

// Set upserts value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	filter := bson.M{"_id": key}
	update := bson.M{"$set": entryDoc{Key: key, Data: value, UpdatedAt: time.Now()}}
	opts := options.Update().SetUpsert(true)
	if _, err := b.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("mongostore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if _, err := b.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongostore: delete %q: %w", key, err)
	}
	return nil
}
