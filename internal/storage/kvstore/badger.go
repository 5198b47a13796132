// Package kvstore implements the persisted key-value store that backs the
// session. BadgerHold is the default backend; SQLite and an in-memory map
// are available for constrained environments and tests.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerStore implements interfaces.KeyValueStore using BadgerHold.
type BadgerStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewBadgerStore opens (or creates) a BadgerHold database at path.
func NewBadgerStore(logger *common.Logger, path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create kv path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store at %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Badger KV store opened")
	return &BadgerStore{db: db, logger: logger}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (string, error) {
	var sv models.StoredValue
	if err := s.db.Get(key, &sv); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get '%s': %w", key, err)
	}
	return sv.Value, nil
}

func (s *BadgerStore) Set(_ context.Context, key, value string) error {
	version := 1
	var existing models.StoredValue
	if err := s.db.Get(key, &existing); err == nil {
		version = existing.Version + 1
	}

	sv := &models.StoredValue{
		Key:       key,
		Value:     value,
		Version:   version,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Upsert(key, sv); err != nil {
		return fmt.Errorf("failed to set '%s': %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Remove(_ context.Context, key string) error {
	if err := s.db.Delete(key, models.StoredValue{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to remove '%s': %w", key, err)
	}
	return nil
}

// Close shuts down the BadgerHold database.
func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
