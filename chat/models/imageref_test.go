package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRefRoundTrip(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x01, 0x02}
	ref := EncodeImageRef("image/png", data)

	mimeType, decoded, err := DecodeImageRef(ref)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, data, decoded)
}

func TestDecodeImageRefRejectsMalformed(t *testing.T) {
	_, _, err := DecodeImageRef("https://example.com/pic.png")
	assert.Error(t, err)

	_, _, err = DecodeImageRef("data:image/png,not-base64-section")
	assert.Error(t, err)
}

func TestExtractImageRef(t *testing.T) {
	ref := EncodeImageRef("image/jpeg", []byte("photo"))
	text := "on the beach " + ref + " at sunset"

	got, remaining, found := ExtractImageRef(text)
	require.True(t, found)
	assert.Equal(t, ref, got)
	assert.Equal(t, "on the beach at sunset", remaining)

	_, remaining, found = ExtractImageRef("just a description")
	assert.False(t, found)
	assert.Equal(t, "just a description", remaining)
}

func TestMessageContextLine(t *testing.T) {
	text := &Message{Sender: SenderUser, Text: "hello"}
	assert.Equal(t, "user: hello", text.ContextLine())

	image := &Message{Sender: SenderAssistant, ImageRef: EncodeImageRef("image/png", []byte{1})}
	assert.Equal(t, "assistant: [sent an image]", image.ContextLine())
}
