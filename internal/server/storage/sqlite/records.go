package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
)

const recordColumns = "id, owner_id, domain, natural_key, payload, sort_at, updated_at, created_at, last_synced_at"

// GetRecord retrieves a record by id
// Returns ErrRecordNotFound if it doesn't exist
func (s *Storage) GetRecord(ctx context.Context, ownerID, domain, id string) (*models.StoredRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM sync_records
		WHERE owner_id = ? AND domain = ? AND id = ?
	`

	row := s.db.QueryRowContext(ctx, query, ownerID, domain, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// FindByNaturalKey retrieves the record matching a natural key
// Returns ErrRecordNotFound when none matches and ErrAmbiguousMatch when more
// than one stored record carries the key
func (s *Storage) FindByNaturalKey(ctx context.Context, ownerID, domain, key string) (*models.StoredRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM sync_records
		WHERE owner_id = ? AND domain = ? AND natural_key = ?
		LIMIT 2
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, domain, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query by natural key: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	matches, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, storage.ErrRecordNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, storage.ErrAmbiguousMatch
	}
}

// InsertRecord stores a new record
// Returns ErrRecordAlreadyExists on id collision
func (s *Storage) InsertRecord(ctx context.Context, rec *models.StoredRecord) error {
	query := `
		INSERT INTO sync_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.Domain,
		rec.NaturalKey,
		string(rec.Payload),
		timeToMillis(rec.SortAt),
		timeToMillis(rec.UpdatedAt),
		timeToMillis(rec.CreatedAt),
		timeToMillis(rec.LastSyncedAt),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrRecordAlreadyExists
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// UpdateRecord overwrites the stored record with the same id
// Returns ErrRecordNotFound if it doesn't exist
func (s *Storage) UpdateRecord(ctx context.Context, rec *models.StoredRecord) error {
	query := `
		UPDATE sync_records
		SET natural_key = ?, payload = ?, sort_at = ?,
		    updated_at = ?, created_at = ?, last_synced_at = ?
		WHERE owner_id = ? AND domain = ? AND id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.NaturalKey,
		string(rec.Payload),
		timeToMillis(rec.SortAt),
		timeToMillis(rec.UpdatedAt),
		timeToMillis(rec.CreatedAt),
		timeToMillis(rec.LastSyncedAt),
		rec.OwnerID,
		rec.Domain,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// ListChangedSince retrieves records with updatedAt or lastSyncedAt after
// since, most recent sort time first, truncated to limit
func (s *Storage) ListChangedSince(ctx context.Context, ownerID, domain string, since time.Time, limit int) ([]*models.StoredRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM sync_records
		WHERE owner_id = ? AND domain = ? AND (updated_at > ? OR last_synced_at > ?)
		ORDER BY sort_at DESC
		LIMIT ?
	`

	cursor := timeToMillis(since)
	rows, err := s.db.QueryContext(ctx, query, ownerID, domain, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query changed records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRecords(rows)
}

// ListRecords retrieves records matching filter, most recent sort time first
func (s *Storage) ListRecords(ctx context.Context, ownerID, domain string, filter storage.RecordFilter) ([]*models.StoredRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM sync_records
		WHERE owner_id = ? AND domain = ?
	`
	args := []any{ownerID, domain}

	if filter.Status != "" {
		query += ` AND json_extract(payload, '$.status') = ?`
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		query += ` AND sort_at >= ?`
		args = append(args, timeToMillis(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND sort_at < ?`
		args = append(args, timeToMillis(filter.To))
	}

	query += ` ORDER BY sort_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRecords(rows)
}

// CountRecords returns the record count and the most recent lastSyncedAt for
// one owner and domain
func (s *Storage) CountRecords(ctx context.Context, ownerID, domain string) (int, time.Time, error) {
	query := `
		SELECT COUNT(*), COALESCE(MAX(last_synced_at), 0)
		FROM sync_records
		WHERE owner_id = ? AND domain = ?
	`

	var count int
	var lastSynced int64
	err := s.db.QueryRowContext(ctx, query, ownerID, domain).Scan(&count, &lastSynced)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to count records: %w", err)
	}

	return count, millisToTime(lastSynced), nil
}

// DeleteRecord removes a record by id
// Returns ErrRecordNotFound if it doesn't exist
func (s *Storage) DeleteRecord(ctx context.Context, ownerID, domain, id string) error {
	query := `DELETE FROM sync_records WHERE owner_id = ? AND domain = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, query, ownerID, domain, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// DeleteRecordsBefore removes records whose sort time is before cutoff
// Returns number of deleted records
func (s *Storage) DeleteRecordsBefore(ctx context.Context, ownerID, domain string, cutoff time.Time) (int, error) {
	query := `DELETE FROM sync_records WHERE owner_id = ? AND domain = ? AND sort_at < ?`

	result, err := s.db.ExecContext(ctx, query, ownerID, domain, timeToMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one sync record row
func scanRecord(row scanner) (*models.StoredRecord, error) {
	rec := &models.StoredRecord{}
	var payload string
	var sortAt, updatedAt, createdAt, lastSyncedAt int64

	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Domain,
		&rec.NaturalKey,
		&payload,
		&sortAt,
		&updatedAt,
		&createdAt,
		&lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	rec.SortAt = millisToTime(sortAt)
	rec.UpdatedAt = millisToTime(updatedAt)
	rec.CreatedAt = millisToTime(createdAt)
	rec.LastSyncedAt = millisToTime(lastSyncedAt)

	return rec, nil
}

// scanRecords scans multiple sync record rows
func scanRecords(rows *sql.Rows) ([]*models.StoredRecord, error) {
	var records []*models.StoredRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// Timestamps are stored as unix milliseconds; zero time maps to 0.
func timeToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
