package sync

import (
	"encoding/json"

	"github.com/tempora-app/tempora/internal/models"
)

// descriptor configures the reconciliation template for one domain. All
// twelve domains share the same pull query and push decision rule; the
// descriptor carries what varies: the payload type, the pull cap, and the
// identity mode.
type descriptor struct {
	name      string
	pullLimit int
	// singleton domains have exactly one record per user, identified by the
	// owner id.
	singleton bool
	// appendOnly domains are pure insertion logs: no identity matching, no
	// conflicts.
	appendOnly bool
	decode     func([]byte) (models.Syncable, error)
	// merge, when set, restricts which incoming fields an accepted update
	// may write onto the stored record.
	merge func(existing, incoming models.Syncable) models.Syncable
}

// syncablePtr constrains PT to a pointer to T that implements Syncable.
type syncablePtr[T any] interface {
	*T
	models.Syncable
}

// decoder returns a decode function for one domain record type.
func decoder[T any, PT syncablePtr[T]]() func([]byte) (models.Syncable, error) {
	return func(data []byte) (models.Syncable, error) {
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return PT(v), nil
	}
}

// mergeProfile copies only the push-writable profile fields onto the stored
// record; account-managed fields (email, avatar) are preserved as stored.
func mergeProfile(existing, incoming models.Syncable) models.Syncable {
	stored := existing.(*models.Profile)
	stored.ApplyWritable(incoming.(*models.Profile))
	return stored
}

// newDomains returns the domain descriptors in their fixed processing order.
// Pull caps bound response payload size per domain.
func newDomains() []*descriptor {
	return []*descriptor{
		{name: models.DomainSchedule, pullLimit: 100, decode: decoder[models.ScheduleItem]()},
		{name: models.DomainChatSession, pullLimit: 50, decode: decoder[models.ChatSession]()},
		{name: models.DomainChatMessage, pullLimit: 200, decode: decoder[models.ChatMessage]()},
		{name: models.DomainVoiceSettings, pullLimit: 1, singleton: true, decode: decoder[models.VoiceSettings]()},
		{name: models.DomainVoiceCommand, pullLimit: 100, appendOnly: true, decode: decoder[models.VoiceCommand]()},
		{name: models.DomainFocusSession, pullLimit: 100, decode: decoder[models.FocusSession]()},
		{name: models.DomainFocusSettings, pullLimit: 1, singleton: true, decode: decoder[models.FocusSettings]()},
		{name: models.DomainTask, pullLimit: 200, decode: decoder[models.SchedulerTask]()},
		{name: models.DomainBlock, pullLimit: 100, decode: decoder[models.ScheduleBlock]()},
		{name: models.DomainSchedulerSettings, pullLimit: 1, singleton: true, decode: decoder[models.SchedulerSettings]()},
		{name: models.DomainPreferences, pullLimit: 1, singleton: true, decode: decoder[models.Preferences]()},
		{name: models.DomainProfile, pullLimit: 1, singleton: true, decode: decoder[models.Profile](), merge: mergeProfile},
	}
}
