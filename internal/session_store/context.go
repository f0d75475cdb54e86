// Package session_store keeps per-session conversation state for both the
// menu and chat channels behind a best-effort, time-bounded store.
package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"time"

	"github.com/lewisedginton/ward_desk/internal/entities"
	"github.com/lewisedginton/ward_desk/internal/intent"
)

// Channel identifies the transport a session belongs to.
type Channel string

const (
	ChannelMenu Channel = "ussd"
	ChannelChat Channel = "chat"
)

// DefaultLanguage is used until a session selects another supported language.
const DefaultLanguage = "en"

// Role is the author of a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one history entry.
type Turn struct {
	Role       Role          `json:"role"`
	Text       string        `json:"text"`
	Timestamp  time.Time     `json:"timestamp"`
	Intent     intent.Intent `json:"intent,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
}

// Context is the state of one session.
type Context struct {
	SessionID         string            `json:"session_id"`
	Channel           Channel           `json:"channel"`
	CreatedAt         time.Time         `json:"created_at"`
	LastInteractionAt time.Time         `json:"last_interaction_at"`
	PhoneNumber       string            `json:"phone_number,omitempty"`
	Path              []string          `json:"path,omitempty"`
	Slots             map[string]string `json:"slots,omitempty"`
	History           []Turn            `json:"history,omitempty"`
	Entities          entities.Set      `json:"entities,omitempty"`
	Language          string            `json:"language"`
	CurrentIntent     intent.Intent     `json:"current_intent,omitempty"`
}

// NewContext starts a fresh session at now.
func NewContext(sessionID string, channel Channel, now time.Time) *Context {
	return &Context{
		SessionID:         sessionID,
		Channel:           channel,
		CreatedAt:         now,
		LastInteractionAt: now,
		Slots:             map[string]string{},
		Entities:          entities.Set{},
		Language:          DefaultLanguage,
	}
}

// Touch moves LastInteractionAt forward. It never moves backwards.
func (c *Context) Touch(now time.Time) {
	if now.After(c.LastInteractionAt) {
		c.LastInteractionAt = now
	}
}

// Expired reports whether the session has been idle longer than window.
func (c *Context) Expired(window time.Duration, now time.Time) bool {
	return window > 0 && now.Sub(c.LastInteractionAt) > window
}

// Duration is the time from creation to the last interaction.
func (c *Context) Duration() time.Duration {
	return c.LastInteractionAt.Sub(c.CreatedAt)
}

// SetSlot stores value under key unless the key is already set.
func (c *Context) SetSlot(key, value string) bool {
	if c.Slots == nil {
		c.Slots = map[string]string{}
	}
	if _, ok := c.Slots[key]; ok {
		return false
	}
	c.Slots[key] = value
	return true
}

// AppendTurn adds t to the history.
func (c *Context) AppendTurn(t Turn) {
	c.History = append(c.History, t)
}

// RecentHistory returns at most the last n history entries.
func (c *Context) RecentHistory(n int) []Turn {
	if n <= 0 || len(c.History) == 0 {
		return nil
	}
	start := max(len(c.History)-n, 0)
	return append([]Turn(nil), c.History[start:]...)
}

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	out := *c
	out.Path = append([]string(nil), c.Path...)
	out.History = append([]Turn(nil), c.History...)
	out.Slots = make(map[string]string, len(c.Slots))
	for k, v := range c.Slots {
		out.Slots[k] = v
	}
	out.Entities = c.Entities.Clone()
	return &out
}
