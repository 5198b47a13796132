// Package storage selects the persisted key-value backend from configuration.
package storage

import (
	"fmt"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/interfaces"
	"github.com/bobmcallan/tradeclient/internal/storage/kvstore"
)

// Backend type constants.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// NewKeyValueStore creates the store named by config.Backend.
// An empty backend defaults to badger.
func NewKeyValueStore(logger *common.Logger, config common.StorageConfig) (interfaces.KeyValueStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendBadger
	}

	switch backend {
	case BackendBadger:
		return kvstore.NewBadgerStore(logger, config.Path)

	case BackendSQLite:
		return kvstore.NewSQLiteStore(logger, config.Path)

	case BackendMemory:
		logger.Warn().Msg("Using in-memory KV store: sessions will not survive a restart")
		return kvstore.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: badger, sqlite, memory)", backend)
	}
}

var (
	_ interfaces.KeyValueStore = (*kvstore.BadgerStore)(nil)
	_ interfaces.KeyValueStore = (*kvstore.SQLiteStore)(nil)
	_ interfaces.KeyValueStore = (*kvstore.MemoryStore)(nil)
)
