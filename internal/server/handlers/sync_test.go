package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage/sqlite"
	syncengine "github.com/tempora-app/tempora/internal/sync"
	"github.com/tempora-app/tempora/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSyncTestHandler(t *testing.T) (*SyncHandler, *sqlite.Storage) {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := testLogger()
	return NewSyncHandler(logger, syncengine.NewEngine(logger, store)), store
}

// authRequest builds a request carrying an authenticated user, the way the
// auth middleware would.
func authRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), UserIDKey, "user-1")
	ctx = context.WithValue(ctx, UsernameKey, "alice")
	return req.WithContext(ctx)
}

func doSync(t *testing.T, h *SyncHandler, reqBody api.SyncRequest) api.SyncResponse {
	t.Helper()

	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleSyncUnauthenticated(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSync(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleSyncMethodNotAllowed(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodDelete, "/api/v1/sync", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleSyncInvalidBody(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader([]byte(`{not json`))))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSyncUnknownDataType(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	body := []byte(`{"dataTypes":["schedules","bogus"]}`)
	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bogus")
}

func TestHandleSyncPushAndPull(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item, err := json.Marshal(&models.ScheduleItem{
		SyncMeta:  models.SyncMeta{UpdatedAt: start},
		Title:     "Standup",
		StartTime: start,
	})
	require.NoError(t, err)

	resp := doSync(t, h, api.SyncRequest{
		DataTypes: []string{api.DataTypeSchedules},
		PushData:  &api.PushData{Schedules: []json.RawMessage{item}},
	})

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Stats.Pushed)
	assert.Empty(t, resp.Errors)

	cursor, err := time.Parse(time.RFC3339, resp.LastSyncAt)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), cursor, time.Minute)

	// Pull with no cursor sees the accepted record.
	resp2 := doSync(t, h, api.SyncRequest{DataTypes: []string{api.DataTypeSchedules}})
	require.Len(t, resp2.Data.Schedules, 1)
	assert.Equal(t, 1, resp2.Stats.Pulled)

	// Pull with the returned cursor does not.
	resp3 := doSync(t, h, api.SyncRequest{
		LastSyncAt: resp.LastSyncAt,
		DataTypes:  []string{api.DataTypeSchedules},
	})
	assert.Empty(t, resp3.Data.Schedules)
}

func TestHandleSyncUnparsableCursorFallsBackToFullPull(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	item, err := json.Marshal(&models.ScheduleItem{
		SyncMeta:  models.SyncMeta{UpdatedAt: start},
		Title:     "Standup",
		StartTime: start,
	})
	require.NoError(t, err)

	doSync(t, h, api.SyncRequest{PushData: &api.PushData{Schedules: []json.RawMessage{item}}})

	resp := doSync(t, h, api.SyncRequest{
		LastSyncAt: "not-a-timestamp",
		DataTypes:  []string{api.DataTypeSchedules},
	})
	assert.Len(t, resp.Data.Schedules, 1)
}

func TestHandleSyncTaggedRecordRouting(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	session := map[string]any{"type": "session", "sessionId": "s-1", "title": "Plans", "updatedAt": ts}
	message := map[string]any{"type": "message", "sessionId": "s-1", "role": "user", "content": "hello", "timestamp": ts, "updatedAt": ts}
	unknown := map[string]any{"type": "wat", "updatedAt": ts}

	body, err := json.Marshal(map[string]any{
		"dataTypes": []string{api.DataTypeChats},
		"pushData":  map[string]any{"chats": []any{session, message, unknown}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.Stats.Pushed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, api.DataTypeChats, resp.Errors[0].Type)
	assert.Contains(t, resp.Errors[0].Message, "wat")

	require.NotNil(t, resp.Data.Chats)
	assert.Len(t, resp.Data.Chats.Sessions, 1)
	assert.Len(t, resp.Data.Chats.Messages, 1)
}

func TestHandleSyncSingletonShape(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	settings, err := json.Marshal(map[string]any{"type": "settings", "enabled": true, "language": "en-US", "updatedAt": ts})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"dataTypes": []string{api.DataTypeVoice},
		"pushData":  map[string]any{"voice": []json.RawMessage{settings}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Voice)

	// Singleton domains surface as one object, not an array.
	var voiceSettings models.VoiceSettings
	require.NoError(t, json.Unmarshal(resp.Data.Voice.Settings, &voiceSettings))
	assert.True(t, voiceSettings.Enabled)
	assert.Equal(t, "user-1", voiceSettings.ID)
}

func TestHandleSyncStatus(t *testing.T) {
	h, _ := newSyncTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleSync(w, authRequest(http.MethodGet, "/api/v1/sync", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SyncStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Len(t, resp.Domains, 12)
	assert.True(t, resp.AutoSync)
	assert.Equal(t, 15, resp.SyncInterval)
}
