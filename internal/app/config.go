package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/fynix-backend/internal/data/db"
	"github.com/yungbote/fynix-backend/internal/platform/envutil"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	LogMode      string
	Port         string
	JWTSecretKey string
	AllowOrigins []string

	DB db.Config

	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration

	AIProvider        string
	AIMaxConcurrency  int
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIVisionModel string
	OpenAITimeout     time.Duration
	OpenAIMaxRetries  int
	GeminiAPIKey      string
	GeminiModel       string
	GeminiVisionModel string
	GeminiTimeout     time.Duration
	OCREnabled        bool

	FeedPrefetchBatch int
	FeedLowWater      int
	FeedMax           int
	FeedMaxUsers      int
	FeedRefillTimeout time.Duration
	FeedbackTimeout   time.Duration

	QuizImageMaxEdge int
	QuizJPEGQuality  int
	QuizSessionTTL   time.Duration
	QuizAITimeout    time.Duration

	FallbackContentPath string
	ServiceName         string
	Environment         string
}

func LoadConfig() Config {
	return Config{
		LogMode:      envutil.String("LOG_MODE", "development"),
		Port:         envutil.String("PORT", "8080"),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		AllowOrigins: envutil.List("CORS_ALLOW_ORIGINS", nil),

		DB: db.ConfigFromEnv(),

		RedisAddr:   envutil.String("REDIS_ADDR", ""),
		RedisPrefix: envutil.String("REDIS_PREFIX", "fynix:feed"),
		RedisTTL:    envutil.Seconds("REDIS_QUEUE_TTL_SECONDS", 6*time.Hour),

		AIProvider:        strings.ToLower(envutil.String("AI_PROVIDER", ProviderOpenAI)),
		AIMaxConcurrency:  envutil.Int("AI_MAX_CONCURRENCY", 4),
		OpenAIAPIKey:      envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     envutil.String("OPENAI_BASE_URL", ""),
		OpenAIModel:       envutil.String("OPENAI_MODEL", ""),
		OpenAIVisionModel: envutil.String("OPENAI_VISION_MODEL", ""),
		OpenAITimeout:     envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
		OpenAIMaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 2),
		GeminiAPIKey:      envutil.String("GEMINI_API_KEY", ""),
		GeminiModel:       envutil.String("GEMINI_MODEL", ""),
		GeminiVisionModel: envutil.String("GEMINI_VISION_MODEL", ""),
		GeminiTimeout:     envutil.Seconds("GEMINI_TIMEOUT_SECONDS", 60*time.Second),
		OCREnabled:        envutil.Bool("OCR_ENABLED", false),

		FeedPrefetchBatch: envutil.Int("FEED_PREFETCH_BATCH", 5),
		FeedLowWater:      envutil.Int("FEED_BUFFER_LOW_WATER", 3),
		FeedMax:           envutil.Int("FEED_BUFFER_MAX", 30),
		FeedMaxUsers:      envutil.Int("FEED_MAX_USERS", 5000),
		FeedRefillTimeout: envutil.Seconds("FEED_REFILL_TIMEOUT_SECONDS", 45*time.Second),
		FeedbackTimeout:   envutil.Seconds("FEEDBACK_TIMEOUT_SECONDS", 20*time.Second),

		QuizImageMaxEdge: envutil.Int("QUIZ_IMAGE_MAX_EDGE", 1920),
		QuizJPEGQuality:  envutil.Int("QUIZ_JPEG_QUALITY", 80),
		QuizSessionTTL:   envutil.Seconds("QUIZ_SESSION_TTL_SECONDS", 2*time.Hour),
		QuizAITimeout:    envutil.Seconds("QUIZ_GENERATE_TIMEOUT_SECONDS", 45*time.Second),

		FallbackContentPath: envutil.String("FALLBACK_CONTENT_PATH", ""),
		ServiceName:         envutil.String("OTEL_SERVICE_NAME", "fynix-backend"),
		Environment:         envutil.String("APP_ENV", "development"),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY required")
	}
	switch c.AIProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	switch c.DB.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
	}
	return nil
}
