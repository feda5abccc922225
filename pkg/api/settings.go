package api

import "encoding/json"

// Setting types accepted by the /sync/settings endpoint.
const (
	SettingTypePreferences   = "preferences"
	SettingTypeFocusSessions = "focus-sessions"
)

// FocusSessionList is the body of GET /sync/settings?type=focus-sessions.
type FocusSessionList struct {
	Items  []json.RawMessage `json:"items"`
	Count  int               `json:"count"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// BulkCreateResponse reports a POST /sync/settings bulk creation.
type BulkCreateResponse struct {
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
}

// DeleteResponse reports a DELETE /sync/settings deletion.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}
