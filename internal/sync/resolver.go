package sync

import (
	"context"
	"errors"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
)

// resolveExisting finds the stored record an incoming record refers to.
// An id match takes precedence; the natural key is consulted only when the
// incoming record carries no id or its id is unknown, which recognizes
// retried offline creations without producing duplicates. Returns (nil, nil)
// when no stored record matches. A natural key matching more than one stored
// record surfaces storage.ErrAmbiguousMatch.
func (e *Engine) resolveExisting(ctx context.Context, d *descriptor, ownerID string, rec models.Syncable) (*models.StoredRecord, error) {
	if id := rec.Meta().ID; id != "" {
		existing, err := e.store.GetRecord(ctx, ownerID, d.name, id)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, storage.ErrRecordNotFound) {
			return nil, err
		}
	}

	key := rec.NaturalKey()
	if key == "" {
		return nil, nil
	}

	existing, err := e.store.FindByNaturalKey(ctx, ownerID, d.name, key)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return existing, nil
}
