package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/pawswipe/internal/db"
)

// NewStore creates a new store based on the given store type.
// Supported types: "memory", "postgres", "sqlite". dsn is the Postgres DSN or
// the SQLite file path respectively.
func NewStore(ctx context.Context, storeType, dsn string) (Store, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := mydb.WaitReady(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if err := mydb.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case "sqlite":
		return NewSQLiteStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
