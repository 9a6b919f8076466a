package models

import (
	"time"
)

// Message senders
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message is one transcript entry. At least one of Text/ImageRef is set.
// The transcript is append-only; messages are never edited or deleted except
// by a full session reset.
type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ExternalID string    `json:"external_id" gorm:"index"`
	SessionID  string    `json:"session_id" gorm:"index"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text,omitempty"`
	ImageRef   string    `json:"image_ref,omitempty"` // data-URI blob
	CreatedAt  time.Time `json:"created_at"`
}

// HasImage reports whether the message carries an image
func (m *Message) HasImage() bool {
	return m.ImageRef != ""
}

// ContextLine serializes the message for the generator's context window
func (m *Message) ContextLine() string {
	body := m.Text
	if body == "" && m.HasImage() {
		body = "[sent an image]"
	}
	return m.Sender + ": " + body
}
