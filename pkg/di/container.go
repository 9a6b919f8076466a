package di

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ai-companion-chat/backend/ai"
	chatmodels "ai-companion-chat/backend/chat/models"
	chatrepo "ai-companion-chat/backend/chat/repository"
	chatservice "ai-companion-chat/backend/chat/service"
	"ai-companion-chat/backend/pkg/cache"
	"ai-companion-chat/backend/pkg/config"
	"ai-companion-chat/backend/pkg/jwt"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/resilience"
	"ai-companion-chat/backend/pkg/secrets"
	profilemodels "ai-companion-chat/backend/profile/models"
	profilerepo "ai-companion-chat/backend/profile/repository"
	profileservice "ai-companion-chat/backend/profile/service"
	"ai-companion-chat/backend/shared/observability"
	sharedredis "ai-companion-chat/backend/shared/redis"
)

// Container holds the application's wired dependencies
type Container struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *gorm.DB
	JWTService     *jwt.Service
	Metrics        *observability.ChatMetrics
	TextGenerator  ai.TextGenerator
	ImageGenerator ai.ImageGenerator
	ProfileService *profileservice.ProfileService
	Transcript     chatrepo.TranscriptRepository
	ImageService   *chatservice.ImageService
	Orchestrator   *chatservice.Orchestrator
}

// New wires the whole application from configuration. The profile store
// backend is selected by CHAT_PROFILE_STORE: "postgres" uses GORM for
// profiles and transcripts, "redis" keeps profiles in Redis and transcripts
// in memory, for deployments without a database.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	if err := secrets.Init(log); err != nil {
		log.Warn("secrets manager unavailable, using environment values", "error", err)
	}
	ctx := context.Background()

	c := &Container{
		Config:     cfg,
		Logger:     log,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry),
		Metrics:    observability.NewChatMetrics(),
	}

	var profileStore profilerepo.SettingsStore
	switch cfg.Chat.ProfileStore {
	case "redis":
		profileStore = profilerepo.NewRedisSettingsStore(sharedredis.NewClient())
		c.Transcript = chatrepo.NewMemoryTranscriptRepository()
	default:
		db, err := config.NewDB()
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %v", err)
		}
		if err := db.AutoMigrate(&profilemodels.Profile{}, &chatmodels.Message{}); err != nil {
			return nil, fmt.Errorf("error running migrations: %v", err)
		}
		c.DB = db
		profileStore = profilerepo.NewGormSettingsStore(db)
		c.Transcript = chatrepo.NewGormTranscriptRepository(db)
	}

	var profileCache *cache.Cache
	if cfg.Cache.Enabled {
		profileCache = cache.NewCache()
	}
	c.ProfileService = profileservice.NewProfileService(profileStore, profileCache)

	textKey := secrets.GetSecretWithDefault(ctx, "textgen_api_key", cfg.TextGen.APIKey)
	text, err := ai.NewOpenAITextGenerator(cfg.TextGen.BaseURL, textKey, cfg.TextGen.Model, cfg.TextGen.Timeout)
	if err != nil {
		return nil, fmt.Errorf("error creating text generator: %v", err)
	}
	c.TextGenerator = text

	imageKey := secrets.GetSecretWithDefault(ctx, "imagegen_api_key", cfg.ImageGen.APIKey)
	images, err := ai.NewGeminiImageGenerator(ctx, imageKey, cfg.ImageGen.Model, cfg.ImageGen.Timeout)
	if err != nil {
		return nil, fmt.Errorf("error creating image generator: %v", err)
	}
	c.ImageGenerator = images

	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("textgen"), log)
	c.ImageService = chatservice.NewImageService(c.TextGenerator, c.ImageGenerator, c.Metrics, log)
	c.Orchestrator = chatservice.NewOrchestrator(
		c.TextGenerator,
		c.ImageService,
		c.ProfileService,
		c.Transcript,
		breaker,
		c.Metrics,
		log,
		chatservice.Options{
			ContextWindow:   cfg.Chat.ContextWindow,
			AppearanceCount: cfg.Chat.AppearanceCount,
			PhotoshootCount: cfg.Chat.PhotoshootCount,
		},
	)
	c.Orchestrator.StartEvictor(time.Hour, cfg.Chat.SessionTTL)
	return c, nil
}
