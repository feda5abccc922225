package models

import (
	"fmt"
	"time"
)

// Preferences is the per-user application preferences singleton.
type Preferences struct {
	SyncMeta
	AutoSync             bool   `json:"autoSync"`
	SyncInterval         int    `json:"syncInterval,omitempty"` // minutes
	Theme                string `json:"theme,omitempty"`
	Language             string `json:"language,omitempty"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// DefaultPreferences returns the preferences auto-created on first read.
func DefaultPreferences(ownerID string, now time.Time) *Preferences {
	return &Preferences{
		SyncMeta: SyncMeta{
			ID:        ownerID,
			UpdatedAt: now,
			CreatedAt: now,
		},
		AutoSync:             true,
		SyncInterval:         15,
		Theme:                "system",
		NotificationsEnabled: true,
	}
}

func (p *Preferences) Domain() string      { return DomainPreferences }
func (p *Preferences) NaturalKey() string  { return "" }
func (p *Preferences) SortTime() time.Time { return p.UpdatedAt }

func (p *Preferences) Validate() error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.SyncInterval < 0 {
		return fmt.Errorf("syncInterval must not be negative")
	}
	switch p.Theme {
	case "", "system", "light", "dark":
	default:
		return fmt.Errorf("invalid theme %q", p.Theme)
	}
	return nil
}
