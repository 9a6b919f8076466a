package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-chat/backend/chat/models"
)

func TestParseCommandPlainText(t *testing.T) {
	_, ok := ParseCommand("hello there")
	assert.False(t, ok)

	// a slash mid-sentence is not a command
	_, ok = ParseCommand("either/or works for me")
	assert.False(t, ok)
}

func TestParseCommandKinds(t *testing.T) {
	tests := []struct {
		raw  string
		want CommandKind
	}{
		{"/start", CmdStart},
		{"  /start  ", CmdStart},
		{"/VOICE", CmdVoice},
		{"/repeat", CmdRepeat},
		{"/help", CmdHelp},
		{"/frobnicate", CmdUnknown},
	}
	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, tt.want, cmd.Kind, tt.raw)
	}
}

func TestParseCommandPhoto(t *testing.T) {
	cmd, ok := ParseCommand("/photo hiking in the mountains")
	require.True(t, ok)
	assert.Equal(t, CmdPhoto, cmd.Kind)
	assert.Equal(t, "hiking in the mountains", cmd.Description)
	assert.Empty(t, cmd.InlineRef)

	cmd, ok = ParseCommand("/photo")
	require.True(t, ok)
	assert.Empty(t, cmd.Description)
}

func TestParseCommandPhotoInlineReference(t *testing.T) {
	ref := models.EncodeImageRef("image/png", []byte("ref"))
	cmd, ok := ParseCommand("/photo wearing this outfit " + ref + " at a gala")
	require.True(t, ok)
	assert.Equal(t, ref, cmd.InlineRef)
	assert.Equal(t, "wearing this outfit at a gala", cmd.Description)
}
