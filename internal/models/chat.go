package models

import (
	"fmt"
	"time"
)

// Chat message roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatSession is one conversation with the assistant. SessionID is
// client-generated and serves as the natural key.
type ChatSession struct {
	SyncMeta
	SessionID string `json:"sessionId"`
	Title     string `json:"title,omitempty"`
	Archived  bool   `json:"archived"`
}

func (c *ChatSession) Domain() string     { return DomainChatSession }
func (c *ChatSession) NaturalKey() string { return c.SessionID }
func (c *ChatSession) SortTime() time.Time {
	return c.UpdatedAt
}

func (c *ChatSession) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	return nil
}

// ChatMessage is one transcript line. Natural key: session + message
// timestamp, which recognizes a retried offline send.
type ChatMessage struct {
	SyncMeta
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *ChatMessage) Domain() string { return DomainChatMessage }

func (c *ChatMessage) NaturalKey() string {
	return naturalKey(c.SessionID, keyTime(c.Timestamp))
}

func (c *ChatMessage) SortTime() time.Time { return c.Timestamp }

func (c *ChatMessage) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if c.Role != ChatRoleUser && c.Role != ChatRoleAssistant {
		return fmt.Errorf("role must be %q or %q", ChatRoleUser, ChatRoleAssistant)
	}
	if c.Content == "" {
		return fmt.Errorf("content is required")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}
