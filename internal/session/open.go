package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/database"
)

// Open builds the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SessionConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path)
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}
