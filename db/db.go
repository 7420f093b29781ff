package db

import (
	"context"
	"fmt"
)

const (
	DriverMongo     = "mongo"
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

type Options struct {
	Driver          string
	MongoURI        string
	MongoDatabase   string
	ProjectID       string
	CredentialsFile string
}

// Open returns the store for the configured driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMongo, "":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
	case DriverFirestore:
		return NewFirestoreStore(ctx, opts.ProjectID, opts.CredentialsFile)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
