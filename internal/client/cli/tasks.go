package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tempora-app/tempora/internal/client/store"
	"github.com/tempora-app/tempora/internal/models"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: add <title> [--due YYYY-MM-DD] [--priority low|medium|high]")
	}

	var titleParts []string
	var due, priority string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--due":
			if i+1 >= len(args) {
				return fmt.Errorf("--due requires a value")
			}
			i++
			due = args[i]
		case "--priority":
			if i+1 >= len(args) {
				return fmt.Errorf("--priority requires a value")
			}
			i++
			priority = args[i]
		default:
			titleParts = append(titleParts, args[i])
		}
	}

	title := strings.Join(titleParts, " ")
	now := time.Now().UTC()

	task := models.SchedulerTask{
		SyncMeta: models.SyncMeta{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:    title,
		DueDate:  due,
		Priority: priority,
	}
	if err := task.Validate(); err != nil {
		return err
	}

	if err := c.store.SaveTask(ctx, &store.CachedTask{Task: task, Dirty: true}); err != nil {
		return err
	}

	c.io.Printf("Added task %s\n", task.ID)
	c.io.Println("Run 'tempora sync' to push it to the server.")

	return nil
}

func (c *Cli) runList(ctx context.Context) error {
	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		c.io.Println("No tasks. Use 'tempora add' to create one.")
		return nil
	}

	for _, t := range tasks {
		mark := " "
		if t.Task.Completed {
			mark = "x"
		}
		pending := ""
		if t.Dirty {
			pending = " (not synced)"
		}
		due := t.Task.DueDate
		if due == "" {
			due = "-"
		}
		c.io.Printf("[%s] %-36s  due %-10s  %s%s\n", mark, t.Task.ID, due, t.Task.Title, pending)
	}

	return nil
}

func (c *Cli) runDone(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: done <id>")
	}

	task, err := c.store.GetTask(ctx, args[0])
	if err != nil {
		return err
	}

	task.Task.Completed = true
	task.Task.UpdatedAt = time.Now().UTC()
	task.Dirty = true

	if err := c.store.SaveTask(ctx, task); err != nil {
		return err
	}

	c.io.Printf("Completed: %s\n", task.Task.Title)
	return nil
}
