package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tempora-app/tempora/internal/client/store"
	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/pkg/api"
)

// runSync pushes dirty tasks and pulls scheduler changes since the stored
// cursor. Pulled tasks replace the cached copies; conflicts keep the
// server version.
func (c *Cli) runSync(ctx context.Context) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	cursor, err := c.store.GetSyncCursor(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync cursor: %w", err)
	}

	dirty, err := c.store.DirtyTasks(ctx)
	if err != nil {
		return err
	}

	req := api.SyncRequest{
		LastSyncAt: cursor,
		DataTypes:  []string{api.DataTypeScheduler},
	}
	if len(dirty) > 0 {
		push := &api.PushData{Scheduler: &api.SchedulerPush{}}
		for _, t := range dirty {
			raw, err := json.Marshal(t.Task)
			if err != nil {
				return fmt.Errorf("failed to marshal task: %w", err)
			}
			push.Scheduler.Tasks = append(push.Scheduler.Tasks, raw)
		}
		req.PushData = push
	}

	resp, err := c.apiClient.Sync(ctx, token, req)
	if err != nil {
		return err
	}

	// Accepted pushes come back on the next pull; mark everything clean
	// unless the server reported it.
	rejected := make(map[string]bool)
	for _, e := range resp.Errors {
		if e.ID != "" {
			rejected[e.ID] = true
		}
	}
	for _, conflict := range resp.Conflicts {
		rejected[conflict.ID] = true
	}

	for _, t := range dirty {
		if rejected[t.Task.ID] {
			continue
		}
		t.Dirty = false
		if err := c.store.SaveTask(ctx, t); err != nil {
			return err
		}
	}

	// Apply pulled tasks over the local cache.
	var pulled int
	if resp.Data.Scheduler != nil {
		for _, raw := range resp.Data.Scheduler.Tasks {
			var task models.SchedulerTask
			if err := json.Unmarshal(raw, &task); err != nil {
				c.io.Printf("Warning: skipping malformed pulled task: %v\n", err)
				continue
			}
			if err := c.store.SaveTask(ctx, &store.CachedTask{Task: task}); err != nil {
				return err
			}
			pulled++
		}
	}

	if err := c.store.SetSyncCursor(ctx, resp.LastSyncAt); err != nil {
		return fmt.Errorf("failed to save sync cursor: %w", err)
	}

	c.io.Printf("Synced: %d pushed, %d pulled, %d conflicts\n",
		resp.Stats.Pushed, pulled, resp.Stats.Conflicts)
	for _, conflict := range resp.Conflicts {
		c.io.Printf("Conflict on %s %s: server version kept\n", conflict.Type, conflict.ID)
	}
	for _, e := range resp.Errors {
		c.io.Printf("Error on %s %s: %s\n", e.Type, e.ID, e.Message)
	}

	return nil
}
