package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testRecord(id, owner, domain, key string, sortAt time.Time) *models.StoredRecord {
	return &models.StoredRecord{
		ID:           id,
		OwnerID:      owner,
		Domain:       domain,
		NaturalKey:   key,
		Payload:      []byte(fmt.Sprintf(`{"id":%q}`, id)),
		SortAt:       sortAt,
		UpdatedAt:    sortAt,
		CreatedAt:    sortAt,
		LastSyncedAt: sortAt,
	}
}

func TestInsertAndGetRecord(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := testRecord("rec-1", "owner-1", models.DomainSchedule, "Standup|2025-03-10T09:00:00Z", now)

	require.NoError(t, s.InsertRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "owner-1", models.DomainSchedule, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.NaturalKey, got.NaturalKey)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
	assert.True(t, got.UpdatedAt.Equal(now))
	assert.True(t, got.LastSyncedAt.Equal(now))
}

func TestGetRecordNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetRecord(context.Background(), "owner-1", models.DomainSchedule, "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestInsertRecordDuplicate(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	rec := testRecord("rec-1", "owner-1", models.DomainSchedule, "", now)

	require.NoError(t, s.InsertRecord(ctx, rec))
	err := s.InsertRecord(ctx, rec)
	assert.ErrorIs(t, err, storage.ErrRecordAlreadyExists)

	// The same id under a different domain or owner is a different row.
	require.NoError(t, s.InsertRecord(ctx, testRecord("rec-1", "owner-1", models.DomainTask, "", now)))
	require.NoError(t, s.InsertRecord(ctx, testRecord("rec-1", "owner-2", models.DomainSchedule, "", now)))
}

func TestFindByNaturalKey(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.InsertRecord(ctx, testRecord("rec-1", "owner-1", models.DomainSchedule, "key-a", now)))

	got, err := s.FindByNaturalKey(ctx, "owner-1", models.DomainSchedule, "key-a")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.ID)

	_, err = s.FindByNaturalKey(ctx, "owner-1", models.DomainSchedule, "key-b")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	// Another owner's records are invisible.
	_, err = s.FindByNaturalKey(ctx, "owner-2", models.DomainSchedule, "key-a")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	require.NoError(t, s.InsertRecord(ctx, testRecord("rec-2", "owner-1", models.DomainSchedule, "key-a", now)))
	_, err = s.FindByNaturalKey(ctx, "owner-1", models.DomainSchedule, "key-a")
	assert.ErrorIs(t, err, storage.ErrAmbiguousMatch)
}

func TestUpdateRecord(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rec := testRecord("rec-1", "owner-1", models.DomainSchedule, "key-a", now)
	require.NoError(t, s.InsertRecord(ctx, rec))

	rec.Payload = []byte(`{"id":"rec-1","title":"edited"}`)
	rec.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "owner-1", models.DomainSchedule, "rec-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"rec-1","title":"edited"}`, string(got.Payload))
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Hour)))

	missing := testRecord("missing", "owner-1", models.DomainSchedule, "", now)
	assert.ErrorIs(t, s.UpdateRecord(ctx, missing), storage.ErrRecordNotFound)
}

func TestListChangedSince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Three records changed at base, base+1h, base+2h; sort times are
	// deliberately in the reverse order of change times.
	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("rec-%d", i), "owner-1", models.DomainSchedule, "", base.Add(time.Duration(-i)*time.Hour))
		rec.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		rec.LastSyncedAt = rec.UpdatedAt
		require.NoError(t, s.InsertRecord(ctx, rec))
	}

	// Epoch cursor sees everything, ordered by sort time descending.
	all, err := s.ListChangedSince(ctx, "owner-1", models.DomainSchedule, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rec-0", all[0].ID)
	assert.Equal(t, "rec-2", all[2].ID)

	// A mid cursor filters on change time, not sort time.
	since, err := s.ListChangedSince(ctx, "owner-1", models.DomainSchedule, base, 10)
	require.NoError(t, err)
	require.Len(t, since, 2)
	for _, rec := range since {
		assert.True(t, rec.UpdatedAt.After(base))
	}

	// The cursor comparison is strict.
	latest, err := s.ListChangedSince(ctx, "owner-1", models.DomainSchedule, base.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, latest)

	// Limit truncates after ordering.
	capped, err := s.ListChangedSince(ctx, "owner-1", models.DomainSchedule, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "rec-0", capped[0].ID)
}

func TestListChangedSinceLastSyncedOnly(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Old edit, recent server acceptance: the record still counts as
	// changed since a cursor between the two.
	rec := testRecord("rec-1", "owner-1", models.DomainSchedule, "", base)
	rec.UpdatedAt = base
	rec.LastSyncedAt = base.Add(2 * time.Hour)
	require.NoError(t, s.InsertRecord(ctx, rec))

	got, err := s.ListChangedSince(ctx, "owner-1", models.DomainSchedule, base.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListRecordsFilters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	statuses := []string{"active", "completed", "completed", "cancelled"}
	for i, status := range statuses {
		rec := testRecord(fmt.Sprintf("rec-%d", i), "owner-1", models.DomainFocusSession, "", base.Add(time.Duration(i)*time.Hour))
		rec.Payload = []byte(fmt.Sprintf(`{"id":"rec-%d","status":%q}`, i, status))
		require.NoError(t, s.InsertRecord(ctx, rec))
	}

	completed, err := s.ListRecords(ctx, "owner-1", models.DomainFocusSession, storage.RecordFilter{Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	// From is inclusive, To is exclusive.
	window, err := s.ListRecords(ctx, "owner-1", models.DomainFocusSession, storage.RecordFilter{
		From: base.Add(time.Hour),
		To:   base.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "rec-2", window[0].ID)
	assert.Equal(t, "rec-1", window[1].ID)

	// Limit and offset page through the sorted list.
	page, err := s.ListRecords(ctx, "owner-1", models.DomainFocusSession, storage.RecordFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "rec-2", page[0].ID)
	assert.Equal(t, "rec-1", page[1].ID)
}

func TestCountRecords(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	count, lastSynced, err := s.CountRecords(ctx, "owner-1", models.DomainTask)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.True(t, lastSynced.IsZero())

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("rec-%d", i), "owner-1", models.DomainTask, "", base)
		rec.LastSyncedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertRecord(ctx, rec))
	}

	count, lastSynced, err = s.CountRecords(ctx, "owner-1", models.DomainTask)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, lastSynced.Equal(base.Add(2*time.Hour)))
}

func TestDeleteRecord(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.InsertRecord(ctx, testRecord("rec-1", "owner-1", models.DomainFocusSession, "", now)))

	require.NoError(t, s.DeleteRecord(ctx, "owner-1", models.DomainFocusSession, "rec-1"))
	_, err := s.GetRecord(ctx, "owner-1", models.DomainFocusSession, "rec-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	assert.ErrorIs(t, s.DeleteRecord(ctx, "owner-1", models.DomainFocusSession, "rec-1"), storage.ErrRecordNotFound)
}

func TestDeleteRecordsBefore(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rec := testRecord(fmt.Sprintf("rec-%d", i), "owner-1", models.DomainFocusSession, "", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.InsertRecord(ctx, rec))
	}

	deleted, err := s.DeleteRecordsBefore(ctx, "owner-1", models.DomainFocusSession, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := s.ListRecords(ctx, "owner-1", models.DomainFocusSession, storage.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
