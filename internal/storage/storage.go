// Package storage persists the serialized state blob under a single key.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"today-todo/internal/config"
)

// Store is a key/value byte store. Load reports ok=false when nothing was
// ever saved under key.
type Store interface {
	Load(ctx context.Context, key string) (payload string, ok bool, err error)
	Save(ctx context.Context, key, payload string) error
	Close() error
}

// SQLiteFile is the database file name used inside cfg.DataDir.
const SQLiteFile = "today-todo.db"

// Open builds the store selected by cfg.Store.
func Open(cfg config.Config, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreFile:
		return NewFile(cfg.DataDir, log)
	case config.StoreSQLite, "":
		if err := config.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		return OpenSQLite(filepath.Join(cfg.DataDir, SQLiteFile), log)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
