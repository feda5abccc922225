package models

import (
	"fmt"
	"time"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DateFormat is the calendar-date format used by dueDate fields.
const DateFormat = "2006-01-02"

// SchedulerTask is one task managed by the auto-scheduler. Natural key:
// title + due date.
type SchedulerTask struct {
	SyncMeta
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DueDate          string `json:"dueDate,omitempty"` // YYYY-MM-DD
	Priority         string `json:"priority,omitempty"`
	EstimatedMinutes int    `json:"estimatedMinutes,omitempty"`
	Completed        bool   `json:"completed"`
}

func (t *SchedulerTask) Domain() string { return DomainTask }

func (t *SchedulerTask) NaturalKey() string {
	return naturalKey(t.Title, t.DueDate)
}

// SortTime orders tasks by due date, falling back to the last edit for tasks
// without one.
func (t *SchedulerTask) SortTime() time.Time {
	if t.DueDate != "" {
		if due, err := time.Parse(DateFormat, t.DueDate); err == nil {
			return due
		}
	}
	return t.UpdatedAt
}

func (t *SchedulerTask) Validate() error {
	if err := t.validate(); err != nil {
		return err
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateFormat, t.DueDate); err != nil {
			return fmt.Errorf("dueDate must be YYYY-MM-DD")
		}
	}
	switch t.Priority {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if t.EstimatedMinutes < 0 {
		return fmt.Errorf("estimatedMinutes must not be negative")
	}
	return nil
}

// ScheduleBlock is one scheduled work block for a task. Natural key:
// task id + start time.
type ScheduleBlock struct {
	SyncMeta
	TaskID    string     `json:"taskId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Completed bool       `json:"completed"`
}

func (b *ScheduleBlock) Domain() string { return DomainBlock }

func (b *ScheduleBlock) NaturalKey() string {
	return naturalKey(b.TaskID, keyTime(b.StartTime))
}

func (b *ScheduleBlock) SortTime() time.Time { return b.StartTime }

func (b *ScheduleBlock) Validate() error {
	if err := b.validate(); err != nil {
		return err
	}
	if b.TaskID == "" {
		return fmt.Errorf("taskId is required")
	}
	if b.StartTime.IsZero() {
		return fmt.Errorf("startTime is required")
	}
	if b.EndTime != nil && b.EndTime.Before(b.StartTime) {
		return fmt.Errorf("endTime must not be before startTime")
	}
	return nil
}

// SchedulerSettings is the per-user auto-scheduler configuration singleton.
type SchedulerSettings struct {
	SyncMeta
	WorkdayStart        string `json:"workdayStart,omitempty"` // HH:MM
	WorkdayEnd          string `json:"workdayEnd,omitempty"`   // HH:MM
	MaxBlocksPerDay     int    `json:"maxBlocksPerDay,omitempty"`
	DefaultBlockMinutes int    `json:"defaultBlockMinutes,omitempty"`
}

func (s *SchedulerSettings) Domain() string      { return DomainSchedulerSettings }
func (s *SchedulerSettings) NaturalKey() string  { return "" }
func (s *SchedulerSettings) SortTime() time.Time { return s.UpdatedAt }

func (s *SchedulerSettings) Validate() error {
	if err := s.validate(); err != nil {
		return err
	}
	for _, v := range []string{s.WorkdayStart, s.WorkdayEnd} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("workday times must be HH:MM")
		}
	}
	if s.MaxBlocksPerDay < 0 || s.DefaultBlockMinutes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}
