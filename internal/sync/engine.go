package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tempora-app/tempora/internal/models"
	"github.com/tempora-app/tempora/internal/server/storage"
	"github.com/tempora-app/tempora/pkg/api"
)

// Engine drives the pull and push phases of one sync call across all domain
// reconcilers. It is stateless between calls; the record store is the only
// shared resource.
type Engine struct {
	store   storage.RecordStore
	logger  *slog.Logger
	domains []*descriptor
	byName  map[string]*descriptor
	now     func() time.Time
}

// NewEngine creates a sync engine backed by the given record store.
func NewEngine(logger *slog.Logger, store storage.RecordStore) *Engine {
	domains := newDomains()
	byName := make(map[string]*descriptor, len(domains))
	for _, d := range domains {
		byName[d.name] = d
	}
	return &Engine{
		store:   store,
		logger:  logger,
		domains: domains,
		byName:  byName,
		now:     time.Now,
	}
}

// Domains returns the domain names in processing order.
func (e *Engine) Domains() []string {
	names := make([]string, 0, len(e.domains))
	for _, d := range e.domains {
		names = append(names, d.name)
	}
	return names
}

// Result is the outcome of one sync call. Pulled maps domain name to the
// records changed since the cursor; StartedAt is the cursor for the caller's
// next call.
type Result struct {
	StartedAt time.Time
	Pulled    map[string][]json.RawMessage
	Conflicts []api.Conflict
	Errors    []api.ItemError
	Stats     api.Stats
}

// Sync runs the pull phase over pullDomains (nil or empty means all) and the
// push phase over the domains present in push, in the fixed declared order.
// A storage failure during pull aborts the whole call; push item failures are
// isolated per item and reported in Result.Errors.
func (e *Engine) Sync(ctx context.Context, ownerID string, cursor time.Time, pullDomains []string, push map[string][]json.RawMessage) (*Result, error) {
	// Whole-second start time: the cursor travels as RFC 3339, and stamping
	// finer than it round-trips would make clients re-pull their own pushes.
	res := &Result{
		StartedAt: e.now().UTC().Truncate(time.Second),
		Pulled:    make(map[string][]json.RawMessage),
		Conflicts: []api.Conflict{},
	}

	requested := make(map[string]bool, len(pullDomains))
	for _, name := range pullDomains {
		requested[name] = true
	}

	for _, d := range e.domains {
		if len(requested) > 0 && !requested[d.name] {
			continue
		}
		records, err := e.store.ListChangedSince(ctx, ownerID, d.name, cursor, d.pullLimit)
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", d.name, err)
		}
		payloads := make([]json.RawMessage, 0, len(records))
		for _, rec := range records {
			payloads = append(payloads, rec.Payload)
		}
		res.Pulled[d.name] = payloads
		res.Stats.Pulled += len(payloads)
	}

	for _, d := range e.domains {
		items := push[d.name]
		if len(items) == 0 {
			continue
		}
		for _, raw := range items {
			e.pushItem(ctx, d, ownerID, raw, res)
		}
	}

	return res, nil
}

// Status reports per-domain record counts, the most recent lastSyncedAt per
// domain, and the caller's stored auto-sync preference.
func (e *Engine) Status(ctx context.Context, ownerID string) (*api.SyncStatusResponse, error) {
	resp := &api.SyncStatusResponse{
		Domains: make([]api.DomainStatus, 0, len(e.domains)),
	}

	for _, d := range e.domains {
		count, lastSynced, err := e.store.CountRecords(ctx, ownerID, d.name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", d.name, err)
		}
		status := api.DomainStatus{Domain: d.name, Count: count}
		if !lastSynced.IsZero() {
			status.LastSyncedAt = lastSynced.UTC().Format(time.RFC3339)
		}
		resp.Domains = append(resp.Domains, status)
	}

	prefs := models.DefaultPreferences(ownerID, e.now())
	rec, err := e.store.GetRecord(ctx, ownerID, models.DomainPreferences, ownerID)
	switch {
	case err == nil:
		if uerr := json.Unmarshal(rec.Payload, prefs); uerr != nil {
			return nil, fmt.Errorf("decode preferences: %w", uerr)
		}
	case !errors.Is(err, storage.ErrRecordNotFound):
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	resp.AutoSync = prefs.AutoSync
	resp.SyncInterval = prefs.SyncInterval

	return resp, nil
}
