package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tempora-app/tempora/internal/models"
	syncengine "github.com/tempora-app/tempora/internal/sync"
	"github.com/tempora-app/tempora/pkg/api"
)

// contextKey is the type for request context keys
type contextKey string

const (
	// UserIDKey stores the authenticated user id in the request context
	UserIDKey contextKey = "user_id"
	// UsernameKey stores the authenticated username in the request context
	UsernameKey contextKey = "username"
)

// GetUserID extracts the authenticated user id from the request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername extracts the authenticated username from the request context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// dataTypeDomains maps each API data type group to its domains, in the
// engine's processing order.
var dataTypeDomains = map[string][]string{
	api.DataTypeSchedules:   {models.DomainSchedule},
	api.DataTypeChats:       {models.DomainChatSession, models.DomainChatMessage},
	api.DataTypeVoice:       {models.DomainVoiceSettings, models.DomainVoiceCommand},
	api.DataTypeFocus:       {models.DomainFocusSession, models.DomainFocusSettings},
	api.DataTypeScheduler:   {models.DomainTask, models.DomainBlock, models.DomainSchedulerSettings},
	api.DataTypePreferences: {models.DomainPreferences},
	api.DataTypeProfile:     {models.DomainProfile},
}

// allDataTypes lists the groups in declared order, used when the request
// omits dataTypes.
var allDataTypes = []string{
	api.DataTypeSchedules,
	api.DataTypeChats,
	api.DataTypeVoice,
	api.DataTypeFocus,
	api.DataTypeScheduler,
	api.DataTypePreferences,
	api.DataTypeProfile,
}

// SyncHandler handles the multi-domain sync endpoint
type SyncHandler struct {
	logger *slog.Logger
	engine *syncengine.Engine
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, engine *syncengine.Engine) *SyncHandler {
	return &SyncHandler{
		logger: logger,
		engine: engine,
	}
}

// HandleSync dispatches GET and POST /sync
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("user id not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleStatus(w, r, userID)
	case http.MethodPost:
		h.handleSync(w, r, userID)
	default:
		sendError(h.logger, w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStatus handles GET /sync: per-domain record counts, most recent
// lastSyncedAt per domain, and the stored auto-sync preference.
func (h *SyncHandler) handleStatus(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	resp, err := h.engine.Status(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync status failed", slog.Any("error", err), slog.String("user_id", userID))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// handleSync handles POST /sync: pull phase over the requested data types,
// then push phase over the domains present in pushData.
func (h *SyncHandler) handleSync(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode sync request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Unparsable cursors fall back to the epoch: the client gets a full pull
	// rather than an error.
	var cursor time.Time
	if req.LastSyncAt != "" {
		if parsed, err := time.Parse(time.RFC3339, req.LastSyncAt); err == nil {
			cursor = parsed
		} else {
			h.logger.WarnContext(ctx, "unparsable cursor, using epoch",
				slog.String("lastSyncAt", req.LastSyncAt))
		}
	}

	dataTypes := req.DataTypes
	if len(dataTypes) == 0 {
		dataTypes = allDataTypes
	}
	requested := make(map[string]bool, len(dataTypes))
	var pullDomains []string
	for _, dt := range dataTypes {
		domains, ok := dataTypeDomains[dt]
		if !ok {
			sendError(h.logger, w, "unknown data type: "+dt, http.StatusBadRequest)
			return
		}
		requested[dt] = true
		pullDomains = append(pullDomains, domains...)
	}

	push, routeErrors := routePushData(req.PushData)

	h.logger.InfoContext(ctx, "sync request",
		slog.String("user_id", userID),
		slog.Time("cursor", cursor),
		slog.Int("data_types", len(dataTypes)),
		slog.Bool("has_push", req.PushData != nil))

	res, err := h.engine.Sync(ctx, userID, cursor, pullDomains, push)
	if err != nil {
		h.logger.ErrorContext(ctx, "sync failed", slog.Any("error", err), slog.String("user_id", userID))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.SyncResponse{
		Success:    true,
		Data:       buildSyncData(requested, res.Pulled),
		Conflicts:  res.Conflicts,
		Errors:     append(routeErrors, res.Errors...),
		LastSyncAt: res.StartedAt.Format(time.RFC3339),
		Stats:      res.Stats,
	}

	h.logger.InfoContext(ctx, "sync completed",
		slog.String("user_id", userID),
		slog.Int("pulled", res.Stats.Pulled),
		slog.Int("pushed", res.Stats.Pushed),
		slog.Int("conflicts", res.Stats.Conflicts),
		slog.Int("errors", len(resp.Errors)))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// routePushData flattens the grouped push payload into per-domain item
// lists. Records with an unknown type tag are reported as item errors and
// skipped; their group keeps processing.
func routePushData(push *api.PushData) (map[string][]json.RawMessage, []api.ItemError) {
	if push == nil {
		return nil, nil
	}

	items := make(map[string][]json.RawMessage)
	var errs []api.ItemError
	add := func(domain string, raw json.RawMessage) {
		items[domain] = append(items[domain], raw)
	}

	for _, raw := range push.Schedules {
		add(models.DomainSchedule, raw)
	}

	for _, rec := range push.Chats {
		switch rec.Type {
		case "session":
			add(models.DomainChatSession, rec.Raw)
		case "message":
			add(models.DomainChatMessage, rec.Raw)
		default:
			errs = append(errs, api.ItemError{Type: api.DataTypeChats, Message: "unknown chat record type: " + rec.Type})
		}
	}

	for _, rec := range push.Voice {
		switch rec.Type {
		case "settings":
			add(models.DomainVoiceSettings, rec.Raw)
		case "command":
			add(models.DomainVoiceCommand, rec.Raw)
		default:
			errs = append(errs, api.ItemError{Type: api.DataTypeVoice, Message: "unknown voice record type: " + rec.Type})
		}
	}

	for _, rec := range push.Focus {
		switch rec.Type {
		case "session":
			add(models.DomainFocusSession, rec.Raw)
		case "settings":
			add(models.DomainFocusSettings, rec.Raw)
		default:
			errs = append(errs, api.ItemError{Type: api.DataTypeFocus, Message: "unknown focus record type: " + rec.Type})
		}
	}

	if push.Scheduler != nil {
		for _, raw := range push.Scheduler.Tasks {
			add(models.DomainTask, raw)
		}
		for _, raw := range push.Scheduler.Blocks {
			add(models.DomainBlock, raw)
		}
		if len(push.Scheduler.Settings) > 0 {
			add(models.DomainSchedulerSettings, push.Scheduler.Settings)
		}
	}

	if len(push.Preferences) > 0 {
		add(models.DomainPreferences, push.Preferences)
	}
	if len(push.Profile) > 0 {
		add(models.DomainProfile, push.Profile)
	}

	return items, errs
}

// buildSyncData assembles the grouped pull results for the requested data
// types. Singleton domains surface as a single object, the rest as arrays.
func buildSyncData(requested map[string]bool, pulled map[string][]json.RawMessage) api.SyncData {
	first := func(domain string) json.RawMessage {
		if records := pulled[domain]; len(records) > 0 {
			return records[0]
		}
		return nil
	}

	var data api.SyncData
	if requested[api.DataTypeSchedules] {
		data.Schedules = pulled[models.DomainSchedule]
	}
	if requested[api.DataTypeChats] {
		data.Chats = &api.ChatData{
			Sessions: pulled[models.DomainChatSession],
			Messages: pulled[models.DomainChatMessage],
		}
	}
	if requested[api.DataTypeVoice] {
		data.Voice = &api.VoiceData{
			Settings: first(models.DomainVoiceSettings),
			Commands: pulled[models.DomainVoiceCommand],
		}
	}
	if requested[api.DataTypeFocus] {
		data.Focus = &api.FocusData{
			Sessions: pulled[models.DomainFocusSession],
			Settings: first(models.DomainFocusSettings),
		}
	}
	if requested[api.DataTypeScheduler] {
		data.Scheduler = &api.SchedulerData{
			Tasks:    pulled[models.DomainTask],
			Blocks:   pulled[models.DomainBlock],
			Settings: first(models.DomainSchedulerSettings),
		}
	}
	if requested[api.DataTypePreferences] {
		data.Preferences = first(models.DomainPreferences)
	}
	if requested[api.DataTypeProfile] {
		data.Profile = first(models.DomainProfile)
	}
	return data
}

// sendJSON writes a JSON response
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError writes a JSON error response
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}
