// Package memorystorage is the in-memory storage backend. It reuses the
// jsondb cache without a backing file.
package memorystorage

import (
	"context"

	"github.com/t5krishn/tinyapp/internal/db/jsondb"
	"github.com/t5krishn/tinyapp/internal/models"
	"github.com/t5krishn/tinyapp/internal/user"
)

// MemoryStorage holds the dataset purely in memory.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty MemoryStorage.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users:         map[string]*user.User{},
				EmailToUserID: map[string]string{},
				Links:         map[string]*models.Link{},
				LinkOrder:     []string{},
			},
		},
	}, nil
}

// Close is a no-op; there is nothing to persist.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Flush is a no-op; there is nothing to persist.
func (theStorage *MemoryStorage) Flush(ctx context.Context) error {
	return nil
}

// Ping always succeeds.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
