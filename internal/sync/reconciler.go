package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
	"github.com/tempora-app/tempora/pkg/api"
)

// pushItem processes one pushed record. Exactly one of three outcomes holds:
// created or updated (pushed), rejected because the stored record is strictly
// newer (conflict), or skipped with a reported reason (error). A failure on
// one item never aborts the batch.
func (e *Engine) pushItem(ctx context.Context, d *descriptor, ownerID string, raw json.RawMessage, res *Result) {
	fail := func(id, msg string) {
		res.Errors = append(res.Errors, api.ItemError{Type: d.name, ID: id, Message: msg})
		e.logger.WarnContext(ctx, "push item skipped",
			slog.String("domain", d.name),
			slog.String("id", id),
			slog.String("reason", msg))
	}

	rec, err := d.decode(raw)
	if err != nil {
		fail(rawID(raw), "invalid payload: "+err.Error())
		return
	}

	meta := rec.Meta()
	if d.singleton {
		// One record per user; the owner id is the identity.
		meta.ID = ownerID
	}

	if err := rec.Validate(); err != nil {
		fail(meta.ID, err.Error())
		return
	}

	now := res.StartedAt

	if d.appendOnly {
		if meta.ID == "" {
			meta.ID = uuid.New().String()
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		meta.LastSyncedAt = now
		if err := e.insert(ctx, ownerID, rec); err != nil {
			fail(meta.ID, err.Error())
			return
		}
		res.Stats.Pushed++
		return
	}

	existing, err := e.resolveExisting(ctx, d, ownerID, rec)
	if err != nil {
		if errors.Is(err, storage.ErrAmbiguousMatch) {
			fail(meta.ID, "natural key matches multiple records")
		} else {
			fail(meta.ID, err.Error())
		}
		return
	}

	if existing == nil {
		if meta.ID == "" {
			meta.ID = uuid.New().String()
		}
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		meta.LastSyncedAt = now
		if err := e.insert(ctx, ownerID, rec); err != nil {
			fail(meta.ID, err.Error())
			return
		}
		res.Stats.Pushed++
		return
	}

	// The stored record is strictly newer than the client's stated version:
	// leave storage untouched and report the pair.
	if existing.UpdatedAt.After(meta.UpdatedAt) {
		res.Conflicts = append(res.Conflicts, api.Conflict{
			Type:       d.name,
			ID:         existing.ID,
			ServerData: existing.Payload,
			ClientData: raw,
		})
		res.Stats.Conflicts++
		return
	}

	if d.merge != nil {
		stored, derr := d.decode(existing.Payload)
		if derr != nil {
			fail(existing.ID, "stored payload undecodable: "+derr.Error())
			return
		}
		rec = d.merge(stored, rec)
		meta = rec.Meta()
	}

	meta.ID = existing.ID
	if !existing.CreatedAt.IsZero() {
		meta.CreatedAt = existing.CreatedAt
	} else if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.LastSyncedAt = now

	env, err := models.NewStoredRecord(ownerID, rec)
	if err != nil {
		fail(meta.ID, err.Error())
		return
	}
	if err := e.store.UpdateRecord(ctx, env); err != nil {
		fail(meta.ID, err.Error())
		return
	}
	res.Stats.Pushed++
}

// insert stores a fully populated record as a new row.
func (e *Engine) insert(ctx context.Context, ownerID string, rec models.Syncable) error {
	env, err := models.NewStoredRecord(ownerID, rec)
	if err != nil {
		return err
	}
	return e.store.InsertRecord(ctx, env)
}

// rawID extracts the id field from an undecodable payload, best effort.
func rawID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.ID
}
