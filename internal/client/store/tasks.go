package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/tempora-app/tempora/internal/models"
)

var cursorKey = []byte("last_sync_at")

// CachedTask wraps a task with its local sync state. Dirty tasks have
// local edits not yet pushed to the server.
type CachedTask struct {
	Task  models.SchedulerTask `json:"task"`
	Dirty bool                 `json:"dirty"`
}

// SaveTask stores a task in the local cache
func (s *Storage) SaveTask(ctx context.Context, task *CachedTask) error {
	if task.Task.ID == "" {
		return fmt.Errorf("task id is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTasks)
		if bucket == nil {
			return fmt.Errorf("tasks bucket not found")
		}

		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task: %w", err)
		}

		if err := bucket.Put([]byte(task.Task.ID), data); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}

		return nil
	})
}

// GetTask retrieves a cached task by id
func (s *Storage) GetTask(ctx context.Context, id string) (*CachedTask, error) {
	var task *CachedTask

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTasks)
		if bucket == nil {
			return fmt.Errorf("tasks bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrTaskNotFound
		}

		task = &CachedTask{}
		if err := json.Unmarshal(data, task); err != nil {
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return task, nil
}

// ListTasks returns all cached tasks, most recently updated first
func (s *Storage) ListTasks(ctx context.Context) ([]*CachedTask, error) {
	var tasks []*CachedTask

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTasks)
		if bucket == nil {
			return fmt.Errorf("tasks bucket not found")
		}

		return bucket.ForEach(func(_, v []byte) error {
			task := &CachedTask{}
			if err := json.Unmarshal(v, task); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			tasks = append(tasks, task)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].Task.UpdatedAt.After(tasks[j].Task.UpdatedAt)
	})

	return tasks, nil
}

// DirtyTasks returns cached tasks with unpushed local edits
func (s *Storage) DirtyTasks(ctx context.Context) ([]*CachedTask, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	dirty := tasks[:0]
	for _, task := range tasks {
		if task.Dirty {
			dirty = append(dirty, task)
		}
	}

	return dirty, nil
}

// DeleteTask removes a task from the local cache
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTasks)
		if bucket == nil {
			return fmt.Errorf("tasks bucket not found")
		}

		if bucket.Get([]byte(id)) == nil {
			return ErrTaskNotFound
		}

		return bucket.Delete([]byte(id))
	})
}

// SetSyncCursor stores the lastSyncAt cursor returned by the server
func (s *Storage) SetSyncCursor(ctx context.Context, cursor string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if bucket == nil {
			return fmt.Errorf("state bucket not found")
		}
		return bucket.Put(cursorKey, []byte(cursor))
	})
}

// GetSyncCursor returns the stored cursor, or "" before the first sync
func (s *Storage) GetSyncCursor(ctx context.Context) (string, error) {
	var cursor string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if bucket == nil {
			return fmt.Errorf("state bucket not found")
		}
		cursor = string(bucket.Get(cursorKey))
		return nil
	})

	return cursor, err
}
