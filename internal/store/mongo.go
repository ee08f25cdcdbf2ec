// Package store provides MongoDB connectivity for the order source
// collection. The store is the leaf dependency of the pipeline: it only
// yields full-collection scans and never writes.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightops/ordersync/internal/config"
	"github.com/freightops/ordersync/internal/core"
)

// Store wraps one MongoDB client scoped to the order collection.
type Store struct {
	client *mongo.Client
	orders *mongo.Collection
}

// Connect establishes and verifies a MongoDB session. The connection is
// acquired once per run and released with Close.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.Info("connected to MongoDB", "database", cfg.Database, "collection", cfg.Collection)

	return &Store{
		client: client,
		orders: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Orders starts a full scan of the order collection: no filter, no
// projection, no pagination. Each call yields a fresh cursor, so a run
// can always restart from the top.
func (s *Store) Orders(ctx context.Context) (core.OrderCursor, error) {
	cur, err := s.orders.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	return cur, nil
}

// Close releases the MongoDB session.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
