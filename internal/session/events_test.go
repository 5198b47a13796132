package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.SetAccessToken(ctx, "abc"))
	ev := receive(t, ch)
	assert.True(t, ev.Authenticated)
	assert.Equal(t, ReasonTokenSet, ev.Reason)

	require.NoError(t, s.Logout(ctx))
	ev = receive(t, ch)
	assert.False(t, ev.Authenticated)
	assert.Equal(t, ReasonLogout, ev.Reason)
}

func TestSubscribe_CoalescesToLatest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.SetAccessToken(ctx, "a"))
	require.NoError(t, s.SetAccessToken(ctx, "b"))
	require.NoError(t, s.Logout(ctx))

	ev := receive(t, ch)
	assert.Equal(t, ReasonLogout, ev.Reason)
	assert.False(t, ev.Authenticated)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %+v", ev)
	default:
	}
}

func TestSubscribe_RestoredEvent(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.MemoryStore.Set(ctx, AccessTokenKey, "abc"))

	ch, cancel := s.Subscribe()
	defer cancel()

	require.True(t, s.InitializeAuth(ctx))
	ev := receive(t, ch)
	assert.Equal(t, Event{Authenticated: true, Reason: ReasonRestored}, ev)
}

func TestSubscribe_CancelClosesAndIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ch, cancel := s.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	// publishing after unsubscribe must not panic
	require.NoError(t, s.SetAccessToken(context.Background(), "abc"))
}

func TestStore_ConcurrentWritersLastWins(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.SetAccessToken(ctx, "tok")
			} else {
				_ = s.Logout(ctx)
			}
			_ = s.IsAuthenticated()
			_ = s.AccessToken()
		}(i)
	}
	wg.Wait()

	ev := receive(t, ch)
	assert.Equal(t, s.IsAuthenticated(), ev.Authenticated, "latest event matches final state")
}
