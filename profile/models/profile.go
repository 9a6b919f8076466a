package models

import (
	"time"
)

// Profile is the companion's configuration for one chat session. It becomes
// the active profile only when all five required fields are populated; until
// then the data lives in a Draft.
type Profile struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	SessionID             string    `json:"session_id" gorm:"uniqueIndex"`
	UserName              string    `json:"user_name"`
	Personality           string    `json:"personality"`
	Topics                string    `json:"topics"`
	AppearanceDescription string    `json:"appearance_description"`
	AvatarImage           []byte    `json:"avatar_image,omitempty"`
	AvatarMIMEType        string    `json:"avatar_mime_type,omitempty"`
	SelectedVoiceID       *string   `json:"selected_voice_id"`
	AutoPlayReplies       bool      `json:"auto_play_replies"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsComplete reports whether every required field is populated. The voice ID
// and auto-play flag are optional.
func (p *Profile) IsComplete() bool {
	return p != nil &&
		p.UserName != "" &&
		p.Personality != "" &&
		p.Topics != "" &&
		p.AppearanceDescription != "" &&
		len(p.AvatarImage) > 0
}

// Draft is the in-progress profile accumulated by the setup wizard
type Draft struct {
	UserName              string
	Personality           string
	Topics                string
	AppearanceDescription string
	SelectedVoiceID       *string
}

// HasRequiredText reports whether every chat-collected field is populated;
// the avatar is supplied separately at promotion time
func (d *Draft) HasRequiredText() bool {
	return d.UserName != "" &&
		d.Personality != "" &&
		d.Topics != "" &&
		d.AppearanceDescription != ""
}

// Promote turns the draft plus a chosen avatar into an active Profile
func (d *Draft) Promote(sessionID string, avatar []byte, avatarMIME string) *Profile {
	return &Profile{
		SessionID:             sessionID,
		UserName:              d.UserName,
		Personality:           d.Personality,
		Topics:                d.Topics,
		AppearanceDescription: d.AppearanceDescription,
		AvatarImage:           avatar,
		AvatarMIMEType:        avatarMIME,
		SelectedVoiceID:       d.SelectedVoiceID,
	}
}
