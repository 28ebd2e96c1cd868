package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	id, err := store.CreateSession(ctx, "u1")
	require.NoError(t, err)

	exists, err := store.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	clock.Advance(time.Minute)
	ok, err := store.AddMessage(ctx, id, domain.RoleUser, "hi")
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), sess.LastActivity)
	assert.True(t, sess.CreatedAt.Before(sess.LastActivity))

	deleted, err := store.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSessionStore_AddMessage_Errors(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	ok, err := store.AddMessage(ctx, "missing", domain.RoleUser, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, id, "system", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestSessionStore_GetHistory_Bounded(t *testing.T) {
	const maxTurns = 3
	store := NewSessionStore(WithMaxTurns(maxTurns))
	ctx := context.Background()
	id, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	total := 2*maxTurns + 5
	for i := 0; i < total; i++ {
		_, err := store.AddMessage(ctx, id, domain.RoleUser, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	history, err := store.GetHistory(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, history, 2*maxTurns)
	assert.Equal(t, fmt.Sprintf("m%d", total-2*maxTurns), history[0].Content)
	assert.Equal(t, fmt.Sprintf("m%d", total-1), history[len(history)-1].Content)

	history, err = store.GetHistory(ctx, "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSessionStore_ConcurrentAppendsSameSession(t *testing.T) {
	store := NewSessionStore(WithMaxTurns(100))
	ctx := context.Background()
	id, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.AddMessage(ctx, id, domain.RoleUser, "x")
		}()
	}
	wg.Wait()

	stats, err := store.GetSessionStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.MessageCount)
	assert.Equal(t, 25, stats.TurnCount)
}

func TestSessionStore_ListSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	a, err := store.CreateSession(ctx, "alice")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = store.CreateSession(ctx, "bob")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = store.AddMessage(ctx, a, domain.RoleUser, "bump")
	require.NoError(t, err)

	all, err := store.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0].ID)

	bob, err := store.ListSessions(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestSessionStore_CleanupOldSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewSessionStore(WithClock(clock.Now))
	ctx := context.Background()

	old, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	clock.Advance(40 * 24 * time.Hour)
	fresh, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	n, err := store.CleanupOldSessions(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetSession(ctx, old)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetSession(ctx, fresh)
	assert.NoError(t, err)
}
