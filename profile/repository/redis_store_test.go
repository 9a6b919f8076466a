package repository

import (
	"context"
	"testing"

	"ai-companion-chat/backend/profile/models"
	"ai-companion-chat/backend/shared/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *RedisSettingsStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisSettingsStore(redis.NewClientWithAddr(mr.Addr()))
}

func TestRedisSettingsStore_RoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	voice := "voice-bella"
	profile := &models.Profile{
		SessionID:             "sess-1",
		UserName:              "Alex",
		Personality:           "witty and kind",
		Topics:                "movies, hiking",
		AppearanceDescription: "tall, dark hair",
		AvatarImage:           []byte{0x89, 0x50, 0x4e, 0x47},
		AvatarMIMEType:        "image/png",
		SelectedVoiceID:       &voice,
	}

	require.NoError(t, store.Save(ctx, profile))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Alex", loaded.UserName)
	assert.Equal(t, profile.AvatarImage, loaded.AvatarImage)
	require.NotNil(t, loaded.SelectedVoiceID)
	assert.Equal(t, "voice-bella", *loaded.SelectedVoiceID)
	assert.True(t, loaded.IsComplete())
}

func TestRedisSettingsStore_LoadMissing(t *testing.T) {
	store := newRedisStore(t)

	_, err := store.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSettingsStore_Clear(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Profile{SessionID: "sess-1", UserName: "Alex"}))
	require.NoError(t, store.Clear(ctx, "sess-1"))

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSettingsStore_LastWriteWins(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Profile{SessionID: "sess-1", UserName: "Alex"}))
	require.NoError(t, store.Save(ctx, &models.Profile{SessionID: "sess-1", UserName: "Sasha"}))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Sasha", loaded.UserName)
}
