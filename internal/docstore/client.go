// Package docstore is the document-store side of the engine: connecting to
// MongoDB, bulk-loading materialized documents, managing the index sets the
// queries rely on, mirroring relational tables 1:1 and guarding runs with a
// sentinel-document lock.
package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the recognized connection options. No component hardcodes a
// connection target; everything flows from here.
type Config struct {
	URI         string
	Database    string
	Timeout     time.Duration
	ReplicaSet  string
	MaxPoolSize uint64
}

// Connect opens a client and pings the deployment. Timeout bounds server
// selection, connection setup and each individual operation.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("docstore: URI must not be empty")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetServerSelectionTimeout(cfg.Timeout).
			SetConnectTimeout(cfg.Timeout).
			SetTimeout(cfg.Timeout)
	}
	if cfg.ReplicaSet != "" {
		opts.SetReplicaSet(cfg.ReplicaSet)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	return client, nil
}
