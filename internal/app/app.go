package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fynix-backend/internal/data/db"
	"github.com/yungbote/fynix-backend/internal/data/repos"
	fxhttp "github.com/yungbote/fynix-backend/internal/http"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *fxhttp.Server
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	metrics := observability.Init(log)

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := repos.New(theDB, log)

	serviceset, err := wireServices(log, cfg, clients, reposet)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	middleware, err := wireMiddleware(log, cfg)
	if err != nil {
		serviceset.Feed.Close()
		clients.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, theDB, clients, serviceset)
	server := fxhttp.NewServer(net.JoinHostPort("", cfg.Port), fxhttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		AllowOrigins:   cfg.AllowOrigins,
		Metrics:        metrics,
		AuthMiddleware: middleware.Auth,
		HealthHandler:  handlerset.Health,
		FeedHandler:    handlerset.Feed,
		QuizHandler:    handlerset.Quiz,
		ProfileHandler: handlerset.Profile,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background metric collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

// Close stops the server, waits for background work and releases clients.
func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Feed != nil {
		a.Services.Feed.Close()
	}
	if a.Services.Quiz != nil {
		a.Services.Quiz.Wait()
	}
	a.Clients.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
