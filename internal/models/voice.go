package models

import (
	"fmt"
	"time"
)

// VoiceSettings is the per-user voice configuration singleton. Its identity
// is the owner id; there is no natural key.
type VoiceSettings struct {
	SyncMeta
	Enabled  bool    `json:"enabled"`
	Language string  `json:"language,omitempty"`
	Voice    string  `json:"voice,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
}

func (v *VoiceSettings) Domain() string      { return DomainVoiceSettings }
func (v *VoiceSettings) NaturalKey() string  { return "" }
func (v *VoiceSettings) SortTime() time.Time { return v.UpdatedAt }

func (v *VoiceSettings) Validate() error {
	if err := v.validate(); err != nil {
		return err
	}
	if v.Rate < 0 || v.Pitch < 0 {
		return fmt.Errorf("rate and pitch must not be negative")
	}
	return nil
}

// VoiceCommand is one executed voice command log entry. The domain is
// append-only: no identity matching, no conflicts.
type VoiceCommand struct {
	SyncMeta
	Transcript string    `json:"transcript"`
	Action     string    `json:"action,omitempty"`
	Success    bool      `json:"success"`
	ExecutedAt time.Time `json:"executedAt"`
}

func (v *VoiceCommand) Domain() string      { return DomainVoiceCommand }
func (v *VoiceCommand) NaturalKey() string  { return "" }
func (v *VoiceCommand) SortTime() time.Time { return v.ExecutedAt }

func (v *VoiceCommand) Validate() error {
	if err := v.validate(); err != nil {
		return err
	}
	if v.Transcript == "" {
		return fmt.Errorf("transcript is required")
	}
	if v.ExecutedAt.IsZero() {
		return fmt.Errorf("executedAt is required")
	}
	return nil
}
