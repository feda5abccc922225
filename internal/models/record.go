package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Domain names. Each is one independently synchronized record category and
// doubles as the "type" field of a reported conflict.
const (
	DomainSchedule          = "schedule"
	DomainChatSession       = "chat_session"
	DomainChatMessage       = "chat_message"
	DomainVoiceSettings     = "voice_settings"
	DomainVoiceCommand      = "voice_command"
	DomainFocusSession      = "focus_session"
	DomainFocusSettings     = "focus_settings"
	DomainTask              = "task"
	DomainBlock             = "block"
	DomainSchedulerSettings = "scheduler_settings"
	DomainPreferences       = "preferences"
	DomainProfile           = "profile"
)

// SyncMeta is the identity and timestamp block shared by every domain record.
// UpdatedAt is the client's last-edit time and drives conflict decisions;
// LastSyncedAt is stamped by the server whenever a push is accepted.
type SyncMeta struct {
	ID           string    `json:"id,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitzero"`
}

// Meta returns the embedded meta block for in-place mutation.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// validate checks the fields every pushed record must carry.
func (m *SyncMeta) validate() error {
	if m.UpdatedAt.IsZero() {
		return fmt.Errorf("updatedAt is required")
	}
	return nil
}

// Syncable is implemented by every domain record type. NaturalKey returns ""
// for domains without one (singletons, append-only logs); SortTime is the
// domain's recency field used to order pull results.
type Syncable interface {
	Meta() *SyncMeta
	Domain() string
	NaturalKey() string
	SortTime() time.Time
	Validate() error
}

// StoredRecord is the storage envelope around a domain record. Payload is the
// record's canonical JSON; the remaining columns are denormalized for
// querying and never diverge from the payload.
type StoredRecord struct {
	ID           string
	OwnerID      string
	Domain       string
	NaturalKey   string
	Payload      json.RawMessage
	SortAt       time.Time
	UpdatedAt    time.Time
	CreatedAt    time.Time
	LastSyncedAt time.Time
}

// NewStoredRecord builds the envelope for a domain record. The record's meta
// must already be fully populated (id assigned, timestamps set).
func NewStoredRecord(ownerID string, rec Syncable) (*StoredRecord, error) {
	meta := rec.Meta()
	if meta.ID == "" {
		return nil, fmt.Errorf("record has no id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	sortAt := rec.SortTime()
	if sortAt.IsZero() {
		sortAt = meta.UpdatedAt
	}

	return &StoredRecord{
		ID:           meta.ID,
		OwnerID:      ownerID,
		Domain:       rec.Domain(),
		NaturalKey:   rec.NaturalKey(),
		Payload:      payload,
		SortAt:       sortAt,
		UpdatedAt:    meta.UpdatedAt,
		CreatedAt:    meta.CreatedAt,
		LastSyncedAt: meta.LastSyncedAt,
	}, nil
}

// naturalKey joins key parts with a separator that cannot occur inside a
// time-formatted part.
func naturalKey(parts ...string) string {
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "|"
		}
		key += p
	}
	return key
}

// keyTime renders a timestamp for use inside a natural key.
func keyTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
