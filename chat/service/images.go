package service

import (
	"context"
	"fmt"
	"sync"

	"ai-companion-chat/backend/ai"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/shared/observability"
)

// ErrNoImages means a whole batch failed and nothing can be shown
var ErrNoImages = fmt.Errorf("no images could be generated")

// ImageService composes prompts and drives the image generator for the
// three image flows: single selfies, appearance options and photoshoots.
type ImageService struct {
	text    ai.TextGenerator
	images  ai.ImageGenerator
	metrics *observability.ChatMetrics
	log     *logger.Logger
}

func NewImageService(text ai.TextGenerator, images ai.ImageGenerator, metrics *observability.ChatMetrics, log *logger.Logger) *ImageService {
	return &ImageService{text: text, images: images, metrics: metrics, log: log}
}

// Selfie produces one in-conversation image. The scene prompt is composed
// from the trigger text and recent transcript; if composition fails the
// trigger text is used directly. The avatar reference keeps the companion's
// established appearance.
func (s *ImageService) Selfie(ctx context.Context, companion ai.CompanionSpec, window []string, reference *ai.ImageBlob, trigger string) (*ai.ImageBlob, error) {
	prompt, err := s.text.GenerateScenePrompt(ctx, ai.SceneRequest{
		TriggerText:   trigger,
		ContextWindow: window,
		Companion:     companion,
	})
	if err != nil || prompt == "" {
		if err != nil {
			s.log.Warn("scene prompt composition failed, using trigger text", "error", err)
		}
		prompt = trigger
	}

	img, err := s.images.GenerateImage(ctx, prompt, reference)
	if err != nil {
		s.countFailure("selfie")
		return nil, fmt.Errorf("error generating selfie: %v", err)
	}
	s.countSuccess("selfie")
	return img, nil
}

// AppearanceOptions derives distinct portrait prompts from the user's
// description and generates them in parallel without a reference image.
// Individual failures are dropped; only an empty result is an error.
func (s *ImageService) AppearanceOptions(ctx context.Context, companion ai.CompanionSpec, description string, count int) ([]ai.ImageBlob, error) {
	prompts, err := s.text.GeneratePromptBatch(ctx, ai.PromptBatchRequest{
		Kind:        ai.BatchAppearance,
		Description: description,
		Count:       count,
		Companion:   companion,
	})
	if err != nil {
		return nil, fmt.Errorf("error deriving appearance prompts: %v", err)
	}

	results := make([]*ai.ImageBlob, len(prompts))
	var wg sync.WaitGroup
	for i, prompt := range prompts {
		wg.Add(1)
		go func(i int, prompt string) {
			defer wg.Done()
			img, err := s.images.GenerateImage(ctx, prompt, nil)
			if err != nil {
				s.countFailure("appearance")
				s.log.Warn("appearance option failed", "index", i, "error", err)
				return
			}
			s.countSuccess("appearance")
			results[i] = img
		}(i, prompt)
	}
	wg.Wait()

	options := make([]ai.ImageBlob, 0, len(results))
	for _, img := range results {
		if img != nil {
			options = append(options, *img)
		}
	}
	if len(options) == 0 {
		return nil, ErrNoImages
	}
	return options, nil
}

// Photoshoot derives pose and angle variations around a reference image and
// generates them in parallel. Finished shots are handed to emit in prompt
// order as soon as every earlier shot has settled, so the stream never
// reorders. Returns the number of successful shots; zero is an error.
func (s *ImageService) Photoshoot(ctx context.Context, companion ai.CompanionSpec, description string, reference *ai.ImageBlob, count int, emit func(index int, img *ai.ImageBlob)) (int, error) {
	prompts, err := s.text.GeneratePromptBatch(ctx, ai.PromptBatchRequest{
		Kind:        ai.BatchPhotoshoot,
		Description: description,
		Count:       count,
		Companion:   companion,
	})
	if err != nil {
		return 0, fmt.Errorf("error deriving photoshoot prompts: %v", err)
	}

	// one slot per prompt so emission can walk them in order
	slots := make([]chan *ai.ImageBlob, len(prompts))
	for i := range slots {
		slots[i] = make(chan *ai.ImageBlob, 1)
	}
	for i, prompt := range prompts {
		go func(i int, prompt string) {
			img, err := s.images.GenerateImage(ctx, prompt, reference)
			if err != nil {
				s.countFailure("photoshoot")
				s.log.Warn("photoshoot variant failed", "index", i, "error", err)
				slots[i] <- nil
				return
			}
			s.countSuccess("photoshoot")
			slots[i] <- img
		}(i, prompt)
	}

	sent := 0
	for i := range slots {
		if img := <-slots[i]; img != nil {
			emit(i, img)
			sent++
		}
	}
	if sent == 0 {
		return 0, ErrNoImages
	}
	return sent, nil
}

func (s *ImageService) countSuccess(kind string) {
	if s.metrics != nil {
		s.metrics.ImagesGenerated.WithLabelValues(kind).Inc()
	}
}

func (s *ImageService) countFailure(kind string) {
	if s.metrics != nil {
		s.metrics.GeneratorFailures.WithLabelValues(kind).Inc()
	}
}
