package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fynix-backend/internal/data/rediscache"
	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/gcp"
	"github.com/yungbote/fynix-backend/internal/platform/gemini"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/openai"
)

type Clients struct {
	// Generator and Vision share one concurrency limiter.
	Generator ai.Generator
	Vision    ai.VisionChat
	OCR       *gcp.Vision
	Redis     *goredis.Client
	Provider  string
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...", "ai_provider", cfg.AIProvider)

	var (
		gen    ai.Generator
		vision ai.VisionChat
	)
	switch cfg.AIProvider {
	case ProviderGemini:
		c, err := gemini.NewClient(ctx, log, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			VisionModel: cfg.GeminiVisionModel,
			Timeout:     cfg.GeminiTimeout,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init gemini client: %w", err)
		}
		gen, vision = c, c
	default:
		c, err := openai.NewClient(log, openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			VisionModel: cfg.OpenAIVisionModel,
			Timeout:     cfg.OpenAITimeout,
			MaxRetries:  cfg.OpenAIMaxRetries,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		gen, vision = c, c
	}
	limiter := ai.NewLimiter(cfg.AIMaxConcurrency)
	out := Clients{
		Generator: limiter.Generator(gen),
		Vision:    limiter.VisionChat(vision),
		Provider:  cfg.AIProvider,
	}

	if cfg.OCREnabled {
		v, err := gcp.NewVision(ctx, log)
		if err != nil {
			// the quiz pipeline runs without OCR
			log.Warn("vision OCR unavailable", "error", err)
		} else {
			out.OCR = v
		}
	}

	if cfg.RedisAddr != "" {
		rdb, err := rediscache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.OCR != nil {
		_ = c.OCR.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

// ocr keeps a nil *gcp.Vision from becoming a non-nil ai.OCR.
func (c Clients) ocr() ai.OCR {
	if c.OCR == nil {
		return nil
	}
	return c.OCR
}
