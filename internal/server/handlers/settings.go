package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
	"github.com/tempora-app/tempora/pkg/api"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// SettingsHandler handles /sync/settings: a narrower CRUD surface for the
// preferences singleton and focus sessions. Writes here are direct
// overwrites; the conflict rule only applies to the main sync endpoint.
type SettingsHandler struct {
	logger *slog.Logger
	store  storage.RecordStore
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(logger *slog.Logger, store storage.RecordStore) *SettingsHandler {
	return &SettingsHandler{
		logger: logger,
		store:  store,
	}
}

// HandleSettings dispatches /sync/settings by method and type parameter
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	userID, ok := GetUserID(r.Context())
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.URL.Query().Get("type") {
	case api.SettingTypePreferences:
		h.handlePreferences(w, r, userID)
	case api.SettingTypeFocusSessions:
		h.handleFocusSessions(w, r, userID)
	default:
		sendError(h.logger, w, "unknown or missing type parameter", http.StatusBadRequest)
	}
}

// setCORSHeaders writes the permissive CORS headers the browser client needs
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

// handlePreferences serves the preferences singleton. A first read creates
// the record with documented defaults.
func (h *SettingsHandler) handlePreferences(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		rec, err := h.store.GetRecord(ctx, userID, models.DomainPreferences, userID)
		if err == nil {
			sendJSON(h.logger, w, json.RawMessage(rec.Payload), http.StatusOK)
			return
		}
		if !errors.Is(err, storage.ErrRecordNotFound) {
			h.logger.ErrorContext(ctx, "failed to load preferences", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}

		prefs := models.DefaultPreferences(userID, time.Now().UTC())
		env, err := models.NewStoredRecord(userID, prefs)
		if err == nil {
			err = h.store.InsertRecord(ctx, env)
		}
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to create default preferences", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		sendJSON(h.logger, w, prefs, http.StatusOK)

	case http.MethodPost, http.MethodPut:
		var prefs models.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		prefs.ID = userID
		if prefs.UpdatedAt.IsZero() {
			prefs.UpdatedAt = now
		}
		if err := prefs.Validate(); err != nil {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
		prefs.LastSyncedAt = now

		if err := h.upsertSingleton(ctx, userID, &prefs, now); err != nil {
			h.logger.ErrorContext(ctx, "failed to save preferences", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		sendJSON(h.logger, w, &prefs, http.StatusOK)

	default:
		sendError(h.logger, w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleFocusSessions serves the focus session CRUD surface: filtered,
// paginated reads, one-or-many creation, update by id, delete by id or age
// cutoff.
func (h *SettingsHandler) handleFocusSessions(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		filter, err := parseFocusFilter(r)
		if err != nil {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := h.store.ListRecords(ctx, userID, models.DomainFocusSession, filter)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to list focus sessions", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		items := make([]json.RawMessage, 0, len(records))
		for _, rec := range records {
			items = append(items, rec.Payload)
		}
		sendJSON(h.logger, w, api.FocusSessionList{
			Items:  items,
			Count:  len(items),
			Limit:  filter.Limit,
			Offset: filter.Offset,
		}, http.StatusOK)

	case http.MethodPost:
		sessions, err := decodeFocusSessions(r)
		if err != nil {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		ids := make([]string, 0, len(sessions))
		for _, session := range sessions {
			if session.ID == "" {
				session.ID = uuid.New().String()
			}
			if session.UpdatedAt.IsZero() {
				session.UpdatedAt = now
			}
			if err := session.Validate(); err != nil {
				sendError(h.logger, w, err.Error(), http.StatusBadRequest)
				return
			}
			if session.CreatedAt.IsZero() {
				session.CreatedAt = now
			}
			session.LastSyncedAt = now

			env, err := models.NewStoredRecord(userID, session)
			if err == nil {
				err = h.store.InsertRecord(ctx, env)
			}
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to create focus session", slog.Any("error", err))
				sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
				return
			}
			ids = append(ids, session.ID)
		}
		sendJSON(h.logger, w, api.BulkCreateResponse{Created: len(ids), IDs: ids}, http.StatusCreated)

	case http.MethodPut:
		var session models.FocusSession
		if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
			sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
			return
		}
		if session.ID == "" {
			sendError(h.logger, w, "id is required", http.StatusBadRequest)
			return
		}
		now := time.Now().UTC()
		if session.UpdatedAt.IsZero() {
			session.UpdatedAt = now
		}
		if err := session.Validate(); err != nil {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}

		existing, err := h.store.GetRecord(ctx, userID, models.DomainFocusSession, session.ID)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				sendError(h.logger, w, "focus session not found", http.StatusNotFound)
				return
			}
			h.logger.ErrorContext(ctx, "failed to load focus session", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}

		session.CreatedAt = existing.CreatedAt
		session.LastSyncedAt = now
		env, err := models.NewStoredRecord(userID, &session)
		if err == nil {
			err = h.store.UpdateRecord(ctx, env)
		}
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to update focus session", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		sendJSON(h.logger, w, &session, http.StatusOK)

	case http.MethodDelete:
		h.deleteFocusSessions(w, r, userID)

	default:
		sendError(h.logger, w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// deleteFocusSessions deletes by id or by age cutoff
func (h *SettingsHandler) deleteFocusSessions(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	if id := r.URL.Query().Get("id"); id != "" {
		err := h.store.DeleteRecord(ctx, userID, models.DomainFocusSession, id)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				sendError(h.logger, w, "focus session not found", http.StatusNotFound)
				return
			}
			h.logger.ErrorContext(ctx, "failed to delete focus session", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		sendJSON(h.logger, w, api.DeleteResponse{Deleted: 1}, http.StatusOK)
		return
	}

	if before := r.URL.Query().Get("before"); before != "" {
		cutoff, err := time.Parse(time.RFC3339, before)
		if err != nil {
			sendError(h.logger, w, "before must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		deleted, err := h.store.DeleteRecordsBefore(ctx, userID, models.DomainFocusSession, cutoff)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to delete focus sessions", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		sendJSON(h.logger, w, api.DeleteResponse{Deleted: deleted}, http.StatusOK)
		return
	}

	sendError(h.logger, w, "id or before parameter is required", http.StatusBadRequest)
}

// upsertSingleton inserts or overwrites a one-per-user record
func (h *SettingsHandler) upsertSingleton(ctx context.Context, userID string, rec models.Syncable, now time.Time) error {
	existing, err := h.store.GetRecord(ctx, userID, rec.Domain(), userID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return err
	}

	meta := rec.Meta()
	if existing != nil {
		if !existing.CreatedAt.IsZero() {
			meta.CreatedAt = existing.CreatedAt
		}
	} else if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}

	env, err := models.NewStoredRecord(userID, rec)
	if err != nil {
		return err
	}
	if existing != nil {
		return h.store.UpdateRecord(ctx, env)
	}
	return h.store.InsertRecord(ctx, env)
}

// parseFocusFilter reads the focus session list query parameters
func parseFocusFilter(r *http.Request) (storage.RecordFilter, error) {
	filter := storage.RecordFilter{Limit: defaultListLimit}
	q := r.URL.Query()

	if status := q.Get("status"); status != "" {
		switch status {
		case models.FocusStatusActive, models.FocusStatusCompleted, models.FocusStatusCancelled:
			filter.Status = status
		default:
			return filter, errors.New("invalid status parameter")
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, errors.New("from must be an RFC 3339 timestamp")
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, errors.New("to must be an RFC 3339 timestamp")
		}
		filter.To = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return filter, errors.New("limit must be a positive integer")
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		filter.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return filter, errors.New("offset must not be negative")
		}
		filter.Offset = n
	}

	return filter, nil
}

// decodeFocusSessions accepts either a single session object or an array
func decodeFocusSessions(r *http.Request) ([]*models.FocusSession, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, errors.New("invalid request body")
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var sessions []*models.FocusSession
		if err := json.Unmarshal(raw, &sessions); err != nil {
			return nil, errors.New("invalid request body")
		}
		if len(sessions) == 0 {
			return nil, errors.New("at least one focus session is required")
		}
		return sessions, nil
	}

	var session models.FocusSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.New("invalid request body")
	}
	return []*models.FocusSession{&session}, nil
}
