package storage

import (
	"context"
	"time"

	"github.com/tempora-app/tempora/internal/models"
)

// RecordFilter narrows ListRecords results. Zero values mean "no constraint".
type RecordFilter struct {
	// Status matches the record payload's status field when set.
	Status string
	// From/To bound the record's sort time (inclusive from, exclusive to).
	From time.Time
	To   time.Time
	// Limit/Offset paginate; Limit <= 0 means no limit.
	Limit  int
	Offset int
}

// RecordStore defines interface for sync record persistence. Records are
// scoped by owner and domain; identity is unique within that scope.
type RecordStore interface {
	// GetRecord retrieves a record by id
	// Returns ErrRecordNotFound if it doesn't exist
	GetRecord(ctx context.Context, ownerID, domain, id string) (*models.StoredRecord, error)

	// FindByNaturalKey retrieves the record matching a natural key
	// Returns ErrRecordNotFound when none matches and ErrAmbiguousMatch when
	// more than one stored record carries the key
	FindByNaturalKey(ctx context.Context, ownerID, domain, key string) (*models.StoredRecord, error)

	// InsertRecord stores a new record
	// Returns ErrRecordAlreadyExists on id collision
	InsertRecord(ctx context.Context, rec *models.StoredRecord) error

	// UpdateRecord overwrites the stored record with the same id
	// Returns ErrRecordNotFound if it doesn't exist
	UpdateRecord(ctx context.Context, rec *models.StoredRecord) error

	// ListChangedSince retrieves records with updatedAt or lastSyncedAt after
	// since, most recent sort time first, truncated to limit
	ListChangedSince(ctx context.Context, ownerID, domain string, since time.Time, limit int) ([]*models.StoredRecord, error)

	// ListRecords retrieves records matching filter, most recent sort time first
	ListRecords(ctx context.Context, ownerID, domain string, filter RecordFilter) ([]*models.StoredRecord, error)

	// CountRecords returns the record count and the most recent lastSyncedAt
	// for one owner and domain
	CountRecords(ctx context.Context, ownerID, domain string) (int, time.Time, error)

	// DeleteRecord removes a record by id
	// Returns ErrRecordNotFound if it doesn't exist
	DeleteRecord(ctx context.Context, ownerID, domain, id string) error

	// DeleteRecordsBefore removes records whose sort time is before cutoff
	// Returns number of deleted records
	DeleteRecordsBefore(ctx context.Context, ownerID, domain string, cutoff time.Time) (int, error)
}
