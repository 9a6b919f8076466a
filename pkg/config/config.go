package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Redis configuration (optional profile-store backend)
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// JWT configuration for session tokens
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Text generator (chat-completions style API)
	TextGen struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	// Image generator (Gemini image model)
	ImageGen struct {
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	// Chat behavior knobs
	Chat struct {
		ContextWindow   int           // transcript entries fed back to the text generator
		AppearanceCount int           // portrait options generated during setup
		PhotoshootCount int           // variation images per /photo command
		ProfileStore    string        // "postgres" or "redis"
		SessionTTL      time.Duration // idle session eviction
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "companion-chat")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Redis config
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Text generator config
		instance.TextGen.BaseURL = getEnvString("TEXTGEN_BASE_URL", "https://api.openai.com/v1")
		instance.TextGen.APIKey = getEnvString("TEXTGEN_API_KEY", "")
		instance.TextGen.Model = getEnvString("TEXTGEN_MODEL", "gpt-4o")
		instance.TextGen.Timeout = getEnvDuration("TEXTGEN_TIMEOUT", 30*time.Second)

		// Image generator config
		instance.ImageGen.APIKey = getEnvString("IMAGEGEN_API_KEY", "")
		instance.ImageGen.Model = getEnvString("IMAGEGEN_MODEL", "gemini-2.5-flash-image")
		instance.ImageGen.Timeout = getEnvDuration("IMAGEGEN_TIMEOUT", 60*time.Second)

		// Chat behavior
		instance.Chat.ContextWindow = getEnvInt("CHAT_CONTEXT_WINDOW", 8)
		instance.Chat.AppearanceCount = getEnvInt("CHAT_APPEARANCE_COUNT", 4)
		instance.Chat.PhotoshootCount = getEnvInt("CHAT_PHOTOSHOOT_COUNT", 5)
		instance.Chat.ProfileStore = getEnvString("PROFILE_STORE", "postgres")
		instance.Chat.SessionTTL = getEnvDuration("CHAT_SESSION_TTL", 12*time.Hour)

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
