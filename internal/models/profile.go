package models

import (
	"fmt"
	"time"
)

// Profile is the per-user profile singleton. Only Name and Bio are writable
// through sync; the remaining fields are managed by account logic and are
// preserved as stored when a push is applied.
type Profile struct {
	SyncMeta
	Name      string `json:"name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (p *Profile) Domain() string      { return DomainProfile }
func (p *Profile) NaturalKey() string  { return "" }
func (p *Profile) SortTime() time.Time { return p.UpdatedAt }

func (p *Profile) Validate() error {
	if err := p.validate(); err != nil {
		return err
	}
	if len(p.Name) > 128 {
		return fmt.Errorf("name must not exceed 128 characters")
	}
	if len(p.Bio) > 1024 {
		return fmt.Errorf("bio must not exceed 1024 characters")
	}
	return nil
}

// ApplyWritable copies the push-writable fields of incoming onto p.
func (p *Profile) ApplyWritable(incoming *Profile) {
	p.Name = incoming.Name
	p.Bio = incoming.Bio
	p.UpdatedAt = incoming.UpdatedAt
}
