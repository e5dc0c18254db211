// Package store contains the persistence layer: MongoDB collections for users
// and posts, a PostgreSQL audit log, a Redis cache, and MinIO object storage
// for avatars.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a document or row does not exist. Handlers map
// it to 404.
var ErrNotFound = errors.New("not found")

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}
