package models

import (
	"fmt"
	"time"
)

// Focus session states.
const (
	FocusStatusActive    = "active"
	FocusStatusCompleted = "completed"
	FocusStatusCancelled = "cancelled"
)

// FocusSession is one timed deep-work interval. SessionID is
// client-generated and serves as the natural key.
type FocusSession struct {
	SyncMeta
	SessionID string     `json:"sessionId"`
	TaskID    string     `json:"taskId,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  int        `json:"duration,omitempty"` // minutes
	Status    string     `json:"status"`
}

func (f *FocusSession) Domain() string      { return DomainFocusSession }
func (f *FocusSession) NaturalKey() string  { return f.SessionID }
func (f *FocusSession) SortTime() time.Time { return f.StartTime }

func (f *FocusSession) Validate() error {
	if err := f.validate(); err != nil {
		return err
	}
	if f.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if f.StartTime.IsZero() {
		return fmt.Errorf("startTime is required")
	}
	switch f.Status {
	case FocusStatusActive, FocusStatusCompleted, FocusStatusCancelled:
	default:
		return fmt.Errorf("invalid status %q", f.Status)
	}
	if f.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}

// FocusSettings is the per-user focus configuration singleton.
type FocusSettings struct {
	SyncMeta
	DefaultDuration int    `json:"defaultDuration,omitempty"` // minutes
	BreakDuration   int    `json:"breakDuration,omitempty"`   // minutes
	AutoStartBreak  bool   `json:"autoStartBreak"`
	Sound           string `json:"sound,omitempty"`
}

func (f *FocusSettings) Domain() string      { return DomainFocusSettings }
func (f *FocusSettings) NaturalKey() string  { return "" }
func (f *FocusSettings) SortTime() time.Time { return f.UpdatedAt }

func (f *FocusSettings) Validate() error {
	if err := f.validate(); err != nil {
		return err
	}
	if f.DefaultDuration < 0 || f.BreakDuration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
