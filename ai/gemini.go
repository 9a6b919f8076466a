package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	genai "google.golang.org/genai"
)

// ErrNoImage is returned when the model answered without producing an image
var ErrNoImage = errors.New("no image in model response")

// GeminiImageGenerator implements ImageGenerator on top of the official
// genai client, using a Gemini image model
type GeminiImageGenerator struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiImageGenerator creates a new image generator client
func NewGeminiImageGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiImageGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("image generator API key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GeminiImageGenerator{cli: cli, model: model, timeout: timeout}, nil
}

// GenerateImage renders one image for the prompt, optionally conditioned on a
// reference image so the companion keeps a consistent appearance
func (g *GeminiImageGenerator) GenerateImage(ctx context.Context, prompt string, reference *ImageBlob) (*ImageBlob, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{{Text: prompt}}
	if reference != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: reference.MIMEType,
				Data:     reference.Data,
			},
		})
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: parts}},
			&genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
		)
		if err != nil {
			lastErr = err
		} else if img := extractImage(resp); img != nil {
			return img, nil
		} else {
			lastErr = ErrNoImage
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("image generation failed: %w", lastErr)
}

// extractImage pulls the first inline image out of a response
func extractImage(resp *genai.GenerateContentResponse) *ImageBlob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &ImageBlob{MIMEType: mime, Data: part.InlineData.Data}
		}
	}
	return nil
}
