package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-app/tempora/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestAuthLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetAuth(ctx)
	assert.ErrorIs(t, err, ErrAuthNotFound)

	ok, err := s.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	auth := &AuthData{
		Username:     "alice",
		UserID:       "user-1",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, s.SaveAuth(ctx, auth))

	got, err := s.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	ok, err = s.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteAuth(ctx))
	assert.ErrorIs(t, s.DeleteAuth(ctx), ErrAuthNotFound)

	_, err = s.GetAuth(ctx)
	assert.ErrorIs(t, err, ErrAuthNotFound)
}

func TestAuthSaveReplaces(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAuth(ctx, &AuthData{Username: "alice", AccessToken: "old"}))
	require.NoError(t, s.SaveAuth(ctx, &AuthData{Username: "alice", AccessToken: "new"}))

	got, err := s.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
}

func TestAuthExpired(t *testing.T) {
	assert.True(t, (&AuthData{ExpiresAt: time.Now().Add(-time.Minute).Unix()}).Expired())
	assert.False(t, (&AuthData{ExpiresAt: time.Now().Add(time.Hour).Unix()}).Expired())
}

func cachedTask(id, title string, updatedAt time.Time, dirty bool) *CachedTask {
	return &CachedTask{
		Task: models.SchedulerTask{
			SyncMeta: models.SyncMeta{ID: id, UpdatedAt: updatedAt},
			Title:    title,
		},
		Dirty: dirty,
	}
}

func TestTaskCache(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.SaveTask(ctx, cachedTask("t-1", "older", now.Add(-time.Hour), false)))
	require.NoError(t, s.SaveTask(ctx, cachedTask("t-2", "newer", now, true)))

	got, err := s.GetTask(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "older", got.Task.Title)
	assert.False(t, got.Dirty)

	_, err = s.GetTask(ctx, "ghost")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t-2", tasks[0].Task.ID, "most recently updated first")

	dirty, err := s.DirtyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "t-2", dirty[0].Task.ID)

	require.NoError(t, s.DeleteTask(ctx, "t-1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "t-1"), ErrTaskNotFound)
}

func TestSaveTaskRequiresID(t *testing.T) {
	s := newTestStorage(t)

	err := s.SaveTask(context.Background(), &CachedTask{Task: models.SchedulerTask{Title: "no id"}})
	assert.Error(t, err)
}

func TestSyncCursor(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	cursor, err := s.GetSyncCursor(ctx)
	require.NoError(t, err)
	assert.Empty(t, cursor, "no cursor before the first sync")

	require.NoError(t, s.SetSyncCursor(ctx, "2026-08-30T12:00:00Z"))

	cursor, err = s.GetSyncCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30T12:00:00Z", cursor)
}
