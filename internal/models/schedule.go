package models

import (
	"fmt"
	"time"
)

// ScheduleItem is one calendar entry (meeting, appointment, reminder).
// Natural key: title + start time, so an offline-created item retried without
// a server id does not duplicate.
type ScheduleItem struct {
	SyncMeta
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Location    string     `json:"location,omitempty"`
	Completed   bool       `json:"completed"`
}

func (s *ScheduleItem) Domain() string { return DomainSchedule }

func (s *ScheduleItem) NaturalKey() string {
	return naturalKey(s.Title, keyTime(s.StartTime))
}

func (s *ScheduleItem) SortTime() time.Time { return s.StartTime }

func (s *ScheduleItem) Validate() error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	if s.StartTime.IsZero() {
		return fmt.Errorf("startTime is required")
	}
	if s.EndTime != nil && s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("endTime must not be before startTime")
	}
	return nil
}
