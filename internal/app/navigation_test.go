package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradeclient/internal/common"
	"github.com/bobmcallan/tradeclient/internal/session"
	"github.com/bobmcallan/tradeclient/internal/storage/kvstore"
)

type branchRecorder struct {
	mu      sync.Mutex
	changes []Branch
}

func (r *branchRecorder) record(b Branch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, b)
}

func (r *branchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func (r *branchRecorder) last() Branch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return ""
	}
	return r.changes[len(r.changes)-1]
}

func TestNavigationGate_InitialBranch(t *testing.T) {
	logger := common.NewSilentLogger()
	kv := kvstore.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), session.AccessTokenKey, "acc"))

	store := session.NewStore(kv, logger)
	assert.Equal(t, BranchAuth, NewNavigationGate(store, logger).Branch())

	store.InitializeAuth(context.Background())
	assert.Equal(t, BranchMain, NewNavigationGate(store, logger).Branch())
}

func TestNavigationGate_FollowsSession(t *testing.T) {
	logger := common.NewSilentLogger()
	store := session.NewStore(kvstore.NewMemoryStore(), logger)
	gate := NewNavigationGate(store, logger)
	rec := &branchRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		gate.Run(ctx, rec.record)
	}()

	require.NoError(t, store.SetAccessToken(ctx, "acc"))
	assert.Eventually(t, func() bool { return gate.Branch() == BranchMain }, time.Second, 5*time.Millisecond)
	assert.Equal(t, BranchMain, rec.last())

	require.NoError(t, store.Logout(ctx))
	assert.Eventually(t, func() bool { return gate.Branch() == BranchAuth }, time.Second, 5*time.Millisecond)
	assert.Equal(t, BranchAuth, rec.last())

	cancel()
	<-done
}

func TestNavigationGate_NoCallbackWithoutChange(t *testing.T) {
	logger := common.NewSilentLogger()
	store := session.NewStore(kvstore.NewMemoryStore(), logger)
	gate := NewNavigationGate(store, logger)
	rec := &branchRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gate.Run(ctx, rec.record)

	// logging out while signed out leaves the branch alone
	require.NoError(t, store.Logout(ctx))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.count())
	assert.Equal(t, BranchAuth, gate.Branch())
}
