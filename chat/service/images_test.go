package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-chat/backend/ai"
	"ai-companion-chat/backend/pkg/logger"
)

// stubImageGenerator fails any prompt containing a configured marker
type stubImageGenerator struct {
	mu       sync.Mutex
	failOn   []string
	failAll  bool
	calls    []string
	lastRefs []*ai.ImageBlob
}

func (g *stubImageGenerator) GenerateImage(_ context.Context, prompt string, reference *ai.ImageBlob) (*ai.ImageBlob, error) {
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	g.lastRefs = append(g.lastRefs, reference)
	g.mu.Unlock()
	if g.failAll {
		return nil, fmt.Errorf("generator down")
	}
	for _, marker := range g.failOn {
		if strings.Contains(prompt, marker) {
			return nil, fmt.Errorf("refused prompt %q", prompt)
		}
	}
	return &ai.ImageBlob{MIMEType: "image/png", Data: []byte(prompt)}, nil
}

func testImageService(text ai.TextGenerator, images ai.ImageGenerator) *ImageService {
	return NewImageService(text, images, nil, logger.New(logger.Config{Level: "error"}))
}

func TestSelfieUsesSceneAndReference(t *testing.T) {
	gen := &stubImageGenerator{}
	svc := testImageService(&stubTextGenerator{scenePrompt: "composed scene"}, gen)
	ref := &ai.ImageBlob{MIMEType: "image/png", Data: []byte("avatar")}

	img, err := svc.Selfie(context.Background(), ai.CompanionSpec{}, nil, ref, "at the lake")
	require.NoError(t, err)
	assert.Equal(t, []byte("composed scene"), img.Data)
	require.Len(t, gen.lastRefs, 1)
	assert.Same(t, ref, gen.lastRefs[0])
}

func TestSelfieFallsBackToTriggerText(t *testing.T) {
	gen := &stubImageGenerator{}
	svc := testImageService(&stubTextGenerator{sceneErr: fmt.Errorf("overloaded")}, gen)

	img, err := svc.Selfie(context.Background(), ai.CompanionSpec{}, nil, nil, "at the lake")
	require.NoError(t, err)
	assert.Equal(t, []byte("at the lake"), img.Data)
}

func TestAppearanceOptionsDropsFailures(t *testing.T) {
	text := &stubTextGenerator{batch: []string{"look 1", "look 2 bad", "look 3", "look 4 bad"}}
	gen := &stubImageGenerator{failOn: []string{"bad"}}
	svc := testImageService(text, gen)

	options, err := svc.AppearanceOptions(context.Background(), ai.CompanionSpec{}, "freckles", 4)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, []byte("look 1"), options[0].Data)
	assert.Equal(t, []byte("look 3"), options[1].Data)
	// portrait options never carry a reference image
	for _, ref := range gen.lastRefs {
		assert.Nil(t, ref)
	}
}

func TestAppearanceOptionsAllFailed(t *testing.T) {
	svc := testImageService(&stubTextGenerator{}, &stubImageGenerator{failAll: true})

	_, err := svc.AppearanceOptions(context.Background(), ai.CompanionSpec{}, "freckles", 4)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestPhotoshootEmitsInPromptOrder(t *testing.T) {
	text := &stubTextGenerator{batch: []string{"shot 1", "shot 2 bad", "shot 3", "shot 4 bad", "shot 5"}}
	gen := &stubImageGenerator{failOn: []string{"bad"}}
	svc := testImageService(text, gen)
	ref := &ai.ImageBlob{MIMEType: "image/jpeg", Data: []byte("reference")}

	var emitted []int
	sent, err := svc.Photoshoot(context.Background(), ai.CompanionSpec{}, "gala outfit", ref, 5, func(index int, img *ai.ImageBlob) {
		emitted = append(emitted, index)
		assert.NotNil(t, img)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, []int{0, 2, 4}, emitted, "failed shots are skipped, order is kept")
}

func TestPhotoshootAllFailed(t *testing.T) {
	svc := testImageService(&stubTextGenerator{}, &stubImageGenerator{failAll: true})

	sent, err := svc.Photoshoot(context.Background(), ai.CompanionSpec{}, "gala", nil, 5, func(int, *ai.ImageBlob) {
		t.Fatal("nothing should be emitted")
	})
	assert.Zero(t, sent)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestPhotoshootPromptDerivationFailure(t *testing.T) {
	svc := testImageService(&stubTextGenerator{batchErr: fmt.Errorf("bad json")}, &stubImageGenerator{})

	_, err := svc.Photoshoot(context.Background(), ai.CompanionSpec{}, "gala", nil, 5, func(int, *ai.ImageBlob) {})
	assert.Error(t, err)
}
