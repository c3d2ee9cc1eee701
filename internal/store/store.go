// File: internal/store/store.go

// Package store persists scenarios. Two backends exist behind one interface:
// a directory of JSON documents (the default) and a single SQLite database.
// Records are whole objects with last-writer-wins semantics; nothing merges.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
)

// Repository is the persistence seam for scenarios. Absence is not a failure:
// Get returns (nil, nil) for an unknown id and Delete ignores missing
// records. Every real failure is wrapped with schemas.ErrStorage so callers
// can classify without knowing the backend.
type Repository interface {
	Save(ctx context.Context, sc *schemas.Scenario) error
	Get(ctx context.Context, id string) (*schemas.Scenario, error)
	List(ctx context.Context) ([]*schemas.Scenario, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// New opens the backend named by cfg.
func New(cfg config.StorageConfig, logger *zap.Logger) (Repository, error) {
	switch cfg.Backend {
	case config.BackendFiles, "":
		return NewFileStore(cfg.Dir, logger)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Dir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ensure both backends stay on the interface.
var (
	_ Repository = (*FileStore)(nil)
	_ Repository = (*SQLiteStore)(nil)
)

// wrapStorage tags err with the storage sentinel while keeping the original
// text. Used by both backends so errors.Is(err, schemas.ErrStorage) holds.
func wrapStorage(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s: %v", schemas.ErrStorage, msg, err)
}
