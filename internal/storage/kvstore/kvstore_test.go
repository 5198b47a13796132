package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/models"
)

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

func backends(t *testing.T) map[string]func(dir string) kv {
	t.Helper()
	logger := common.NewSilentLogger()
	return map[string]func(dir string) kv{
		"badger": func(dir string) kv {
			s, err := NewBadgerStore(logger, dir)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(dir string) kv {
			s, err := NewSQLiteStore(logger, dir)
			require.NoError(t, err)
			return s
		},
		"memory": func(string) kv {
			return NewMemoryStore()
		},
	}
}

func TestStore_SetGetRemove(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t.TempDir())
			t.Cleanup(func() { s.Close() })

			v, err := s.Get(ctx, "auth.access_token")
			require.NoError(t, err)
			assert.Empty(t, v, "absent key reads as empty")

			require.NoError(t, s.Set(ctx, "auth.access_token", "abc"))
			v, err = s.Get(ctx, "auth.access_token")
			require.NoError(t, err)
			assert.Equal(t, "abc", v)

			// overwrite is last-write-wins
			require.NoError(t, s.Set(ctx, "auth.access_token", "def"))
			v, _ = s.Get(ctx, "auth.access_token")
			assert.Equal(t, "def", v)

			require.NoError(t, s.Remove(ctx, "auth.access_token"))
			v, err = s.Get(ctx, "auth.access_token")
			require.NoError(t, err)
			assert.Empty(t, v)

			// removing an absent key is not an error
			assert.NoError(t, s.Remove(ctx, "auth.access_token"))
		})
	}
}

func TestStore_KeysAreIndependent(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t.TempDir())
			t.Cleanup(func() { s.Close() })

			require.NoError(t, s.Set(ctx, "auth.access_token", "a"))
			require.NoError(t, s.Set(ctx, "auth.refresh_token", "r"))
			require.NoError(t, s.Remove(ctx, "auth.access_token"))

			v, _ := s.Get(ctx, "auth.refresh_token")
			assert.Equal(t, "r", v)
		})
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	logger := common.NewSilentLogger()
	ctx := context.Background()

	t.Run("badger", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewBadgerStore(logger, dir)
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Close())

		s, err = NewBadgerStore(logger, dir)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("sqlite", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		s, err := NewSQLiteStore(logger, dir)
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Close())

		s, err = NewSQLiteStore(logger, dir)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})
}

func TestBadgerStore_VersionIncrements(t *testing.T) {
	s, err := NewBadgerStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "1"))
	require.NoError(t, s.Set(ctx, "k", "2"))

	var sv models.StoredValue
	require.NoError(t, s.db.Get("k", &sv))
	assert.Equal(t, "2", sv.Value)
	assert.Equal(t, 2, sv.Version)
	assert.False(t, sv.UpdatedAt.IsZero())
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	assert.Equal(t, 2, s.Len())
	require.NoError(t, s.Remove(ctx, "a"))
	assert.Equal(t, 1, s.Len())
}
