package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/fynix-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fynix-backend/internal/http/middleware"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Feed    *httpH.FeedHandler
	Quiz    *httpH.QuizHandler
	Profile *httpH.ProfileHandler
}

func wireHandlers(log *logger.Logger, theDB *gorm.DB, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	checks := []httpH.HealthCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if clients.Redis != nil {
		checks = append(checks, httpH.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() },
		})
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(checks...),
		Feed:    httpH.NewFeedHandler(services.Feed),
		Quiz:    httpH.NewQuizHandler(services.Quiz),
		Profile: httpH.NewProfileHandler(services.Learner),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	auth, err := httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{Auth: auth}, nil
}
