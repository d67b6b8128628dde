package app

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/fynix-backend/internal/data/db"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"AI_PROVIDER", "DB_DRIVER", "FEED_PREFETCH_BATCH", "CORS_ALLOW_ORIGINS", "OPENAI_TIMEOUT_SECONDS", "QUIZ_IMAGE_MAX_EDGE", "QUIZ_GENERATE_TIMEOUT_SECONDS", "FEED_REFILL_TIMEOUT_SECONDS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.AIProvider != ProviderOpenAI || cfg.DB.Driver != db.DriverPostgres {
		t.Fatalf("provider=%q driver=%q", cfg.AIProvider, cfg.DB.Driver)
	}
	if cfg.FeedPrefetchBatch != 5 || cfg.QuizImageMaxEdge != 1920 || cfg.OpenAITimeout != 60*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.QuizAITimeout != 45*time.Second || cfg.FeedRefillTimeout != 45*time.Second {
		t.Fatalf("ai timeouts quiz=%v refill=%v", cfg.QuizAITimeout, cfg.FeedRefillTimeout)
	}
	if len(cfg.AllowOrigins) != 0 {
		t.Fatalf("origins=%v", cfg.AllowOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("FEED_BUFFER_MAX", "12")
	t.Setenv("FEEDBACK_TIMEOUT_SECONDS", "3")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadConfig()
	if cfg.AIProvider != ProviderGemini || cfg.DB.Driver != db.DriverSQLite {
		t.Fatalf("provider=%q driver=%q", cfg.AIProvider, cfg.DB.Driver)
	}
	if cfg.FeedMax != 12 || cfg.FeedbackTimeout != 3*time.Second {
		t.Fatalf("feed max=%d timeout=%v", cfg.FeedMax, cfg.FeedbackTimeout)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.AllowOrigins); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{JWTSecretKey: "k", AIProvider: ProviderOpenAI, DB: db.Config{Driver: db.DriverSQLite}}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cases := map[string]func(*Config){
		"no secret":    func(c *Config) { c.JWTSecretKey = " " },
		"bad provider": func(c *Config) { c.AIProvider = "llama" },
		"bad driver":   func(c *Config) { c.DB.Driver = "mysql" },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
