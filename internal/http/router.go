package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fynix-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fynix-backend/internal/http/middleware"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowOrigins   []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler  *httpH.HealthHandler
	FeedHandler    *httpH.FeedHandler
	QuizHandler    *httpH.QuizHandler
	ProfileHandler *httpH.ProfileHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Feed
		if cfg.FeedHandler != nil {
			api.POST("/feed/init", cfg.FeedHandler.Init)
			api.GET("/feed/next", cfg.FeedHandler.Next)
			api.GET("/feed/next-one", cfg.FeedHandler.NextOne)
			api.POST("/feed/answer", cfg.FeedHandler.Answer)
			api.GET("/feed/answer/:id", cfg.FeedHandler.Feedback)
			api.POST("/feed/save", cfg.FeedHandler.Save)
		}

		// Material quiz
		if cfg.QuizHandler != nil {
			api.POST("/quiz-sessions", cfg.QuizHandler.Create)
			api.GET("/quiz-sessions/:id", cfg.QuizHandler.Get)
			api.POST("/quiz-sessions/:id/answer", cfg.QuizHandler.Answer)
			api.POST("/quiz-sessions/:id/next", cfg.QuizHandler.Next)
			api.GET("/quiz-sessions/:id/summary", cfg.QuizHandler.Summary)
		}

		// Profile
		if cfg.ProfileHandler != nil {
			api.GET("/me/profile", cfg.ProfileHandler.Get)
			api.PUT("/me/profile", cfg.ProfileHandler.Update)
			api.GET("/me/saved-facts", cfg.ProfileHandler.SavedFacts)
			api.GET("/me/quiz-results", cfg.ProfileHandler.QuizResults)
		}
	}

	return r
}
