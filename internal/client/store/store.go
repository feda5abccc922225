package store

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketAuth  = []byte("auth")
	bucketState = []byte("state")
	bucketTasks = []byte("tasks")
)

var (
	// ErrAuthNotFound is returned when no session is stored
	ErrAuthNotFound = errors.New("auth data not found")
	// ErrTaskNotFound is returned when a cached task does not exist
	ErrTaskNotFound = errors.New("task not found")
)

// Storage is the client-side BoltDB store. It keeps the session, the
// sync cursor and a local cache of tasks.
type Storage struct {
	db *bbolt.DB
}

// New opens the BoltDB file at dbPath, creating buckets as needed
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAuth, bucketState, bucketTasks} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
