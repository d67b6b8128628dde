package app

import (
	"fmt"

	"github.com/yungbote/fynix-backend/internal/data/rediscache"
	"github.com/yungbote/fynix-backend/internal/data/repos"
	"github.com/yungbote/fynix-backend/internal/modules/content/factgen"
	"github.com/yungbote/fynix-backend/internal/modules/content/fallback"
	"github.com/yungbote/fynix-backend/internal/modules/feed"
	"github.com/yungbote/fynix-backend/internal/modules/feed/buffer"
	"github.com/yungbote/fynix-backend/internal/modules/feedback"
	"github.com/yungbote/fynix-backend/internal/modules/learner"
	"github.com/yungbote/fynix-backend/internal/modules/quiz"
	"github.com/yungbote/fynix-backend/internal/modules/quiz/imaging"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type Services struct {
	Learner learner.Service
	Feed    feed.Service
	Quiz    quiz.Service
}

func loadFallback(log *logger.Logger, path string) (*fallback.Store, error) {
	if path == "" {
		return fallback.Default()
	}
	store, err := fallback.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load fallback content %s: %w", path, err)
	}
	log.Info("fallback content loaded", "path", path, "languages", store.Languages())
	return store, nil
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, r repos.Repos) (Services, error) {
	log.Info("Wiring services...")

	learners, err := learner.NewService(log, r)
	if err != nil {
		return Services{}, err
	}

	store, err := loadFallback(log, cfg.FallbackContentPath)
	if err != nil {
		return Services{}, err
	}

	fb, err := feedback.New(log, clients.Generator, "", clients.Provider, cfg.FeedbackTimeout)
	if err != nil {
		return Services{}, err
	}

	facts, err := factgen.New(log, clients.Generator, "", clients.Provider)
	if err != nil {
		return Services{}, err
	}

	var queue buffer.Queue = buffer.NewMemoryQueue()
	if clients.Redis != nil {
		q, err := rediscache.NewQueue(log, clients.Redis, cfg.RedisPrefix, cfg.RedisTTL)
		if err != nil {
			return Services{}, err
		}
		queue = q
	}

	feedSvc, err := feed.NewService(log, facts, queue, store, fb, learners, learners, feed.Config{
		Buffer: buffer.Config{
			Batch:    cfg.FeedPrefetchBatch,
			LowWater: cfg.FeedLowWater,
			Max:      cfg.FeedMax,
			Timeout:  cfg.FeedRefillTimeout,
		},
		MaxUsers: cfg.FeedMaxUsers,
	})
	if err != nil {
		return Services{}, err
	}

	pipeline, err := quiz.NewPipeline(log, clients.Generator, clients.Vision, clients.ocr(), quiz.PipelineConfig{
		Provider:  clients.Provider,
		AITimeout: cfg.QuizAITimeout,
		Image: imaging.Options{
			MaxEdge: cfg.QuizImageMaxEdge,
			Quality: cfg.QuizJPEGQuality,
		},
	})
	if err != nil {
		return Services{}, err
	}
	quizSvc, err := quiz.NewService(log, pipeline, fb, learners, learners, quiz.NewSessionStore(cfg.QuizSessionTTL, 0))
	if err != nil {
		return Services{}, err
	}

	return Services{
		Learner: learners,
		Feed:    feedSvc,
		Quiz:    quizSvc,
	}, nil
}
