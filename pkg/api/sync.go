package api

import "encoding/json"

// Data type groups accepted in SyncRequest.DataTypes and PushData keys.
const (
	DataTypeSchedules   = "schedules"
	DataTypeChats       = "chats"
	DataTypeVoice       = "voice"
	DataTypeFocus       = "focus"
	DataTypeScheduler   = "scheduler"
	DataTypePreferences = "preferences"
	DataTypeProfile     = "profile"
)

// SyncRequest is the body of POST /sync.
// LastSyncAt is the cursor from the previous sync (RFC 3339); empty or
// unparsable means "from the beginning". DataTypes limits the pull phase;
// empty means all. PushData is optional; absent means pull-only.
type SyncRequest struct {
	LastSyncAt string    `json:"lastSyncAt,omitempty"`
	DataTypes  []string  `json:"dataTypes,omitempty"`
	PushData   *PushData `json:"pushData,omitempty"`
}

// PushData groups client-side changes by data type. Chats, Voice and Focus
// carry tagged records (see TaggedRecord); the rest are plain domain records.
type PushData struct {
	Schedules   []json.RawMessage `json:"schedules,omitempty"`
	Chats       []TaggedRecord    `json:"chats,omitempty"`
	Voice       []TaggedRecord    `json:"voice,omitempty"`
	Focus       []TaggedRecord    `json:"focus,omitempty"`
	Scheduler   *SchedulerPush    `json:"scheduler,omitempty"`
	Preferences json.RawMessage   `json:"preferences,omitempty"`
	Profile     json.RawMessage   `json:"profile,omitempty"`
}

// SchedulerPush is the scheduler group's push shape.
type SchedulerPush struct {
	Tasks    []json.RawMessage `json:"tasks,omitempty"`
	Blocks   []json.RawMessage `json:"blocks,omitempty"`
	Settings json.RawMessage   `json:"settings,omitempty"`
}

// TaggedRecord is a record carrying a "type" discriminator that routes it to
// one of the domains inside a data type group (e.g. chat "session" vs
// "message"). The full raw body, tag included, is preserved for decoding.
type TaggedRecord struct {
	Type string
	Raw  json.RawMessage
}

// UnmarshalJSON extracts the type tag and keeps the raw body.
func (t *TaggedRecord) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	t.Type = tag.Type
	t.Raw = append([]byte(nil), data...)
	return nil
}

// MarshalJSON writes the preserved raw body.
func (t TaggedRecord) MarshalJSON() ([]byte, error) {
	if t.Raw == nil {
		return []byte("null"), nil
	}
	return t.Raw, nil
}

// SyncResponse is the body of a successful POST /sync.
type SyncResponse struct {
	Success    bool        `json:"success"`
	Data       SyncData    `json:"data"`
	Conflicts  []Conflict  `json:"conflicts"`
	Errors     []ItemError `json:"errors,omitempty"`
	LastSyncAt string      `json:"lastSyncAt"`
	Stats      Stats       `json:"stats"`
}

// SyncData holds pulled records keyed by data type group.
type SyncData struct {
	Schedules   []json.RawMessage `json:"schedules,omitempty"`
	Chats       *ChatData         `json:"chats,omitempty"`
	Voice       *VoiceData        `json:"voice,omitempty"`
	Focus       *FocusData        `json:"focus,omitempty"`
	Scheduler   *SchedulerData    `json:"scheduler,omitempty"`
	Preferences json.RawMessage   `json:"preferences,omitempty"`
	Profile     json.RawMessage   `json:"profile,omitempty"`
}

// ChatData splits the chats group into its two domains.
type ChatData struct {
	Sessions []json.RawMessage `json:"sessions"`
	Messages []json.RawMessage `json:"messages"`
}

// VoiceData splits the voice group into its two domains.
type VoiceData struct {
	Settings json.RawMessage   `json:"settings,omitempty"`
	Commands []json.RawMessage `json:"commands"`
}

// FocusData splits the focus group into its two domains.
type FocusData struct {
	Sessions []json.RawMessage `json:"sessions"`
	Settings json.RawMessage   `json:"settings,omitempty"`
}

// SchedulerData splits the scheduler group into its three domains.
type SchedulerData struct {
	Tasks    []json.RawMessage `json:"tasks"`
	Blocks   []json.RawMessage `json:"blocks"`
	Settings json.RawMessage   `json:"settings,omitempty"`
}

// Conflict reports one push item rejected because the stored record is
// strictly newer. ServerData is the stored record, ClientData the submitted
// item; resolution is left to the caller.
type Conflict struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	ServerData json.RawMessage `json:"serverData"`
	ClientData json.RawMessage `json:"clientData"`
}

// ItemError reports one push item that could not be processed. Such items are
// counted in neither pushed nor conflicts.
type ItemError struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Stats aggregates counts across all domains touched by one sync call.
type Stats struct {
	Pulled    int `json:"pulled"`
	Pushed    int `json:"pushed"`
	Conflicts int `json:"conflicts"`
}

// DomainStatus is one row of the GET /sync report.
type DomainStatus struct {
	Domain       string `json:"domain"`
	Count        int    `json:"count"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

// SyncStatusResponse is the body of GET /sync.
type SyncStatusResponse struct {
	Domains      []DomainStatus `json:"domains"`
	AutoSync     bool           `json:"autoSync"`
	SyncInterval int            `json:"syncInterval"`
}
