package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/livescore-board/external/livescores"
	"github.com/riskibarqy/livescore-board/internal/config"
	"github.com/riskibarqy/livescore-board/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/livescore-board/internal/interfaces/httpapi"
	"github.com/riskibarqy/livescore-board/internal/observability"
	"github.com/riskibarqy/livescore-board/internal/platform/cache"
	idgen "github.com/riskibarqy/livescore-board/internal/platform/id"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/platform/resilience"
	"github.com/riskibarqy/livescore-board/internal/usecase"
)

// featured queries are client controlled; keep the key space bounded
const featuredCacheEntries = 256

// App owns the HTTP server and the background board poller.
type App struct {
	Server    *http.Server
	Scheduler *usecase.PollScheduler
	hub       *httpapi.BoardHub
	logger    *logging.Logger
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	hubCfg := httpapi.BoardHubConfig{
		PoolSize:     cfg.StreamWorkerPoolSize,
		WriteTimeout: cfg.StreamWriteTimeout,
		Logger:       logger,
	}
	if metrics != nil {
		hubCfg.Viewers = metrics
	}
	hub, err := httpapi.NewBoardHub(hubCfg)
	if err != nil {
		return nil, fmt.Errorf("build board hub: %w", err)
	}

	client, clientErr := newLiveScoresClient(cfg, logger, metrics)

	pollCfg := usecase.PollConfig{
		Interval:    cfg.LiveScoresRefreshInterval,
		AutoRefresh: cfg.LiveScoresAutoRefresh,
		StartHidden: cfg.LiveScoresPauseWhenIdle,
		DaysBack:    cfg.LiveScoresBulletinDaysBack,
		DaysAhead:   cfg.LiveScoresBulletinDaysAhead,
		ConfigError: clientErr,
	}
	pollOpts := []usecase.PollOption{
		usecase.WithPollLogger(logger),
		usecase.WithBoardPublisher(hub),
	}
	if metrics != nil {
		pollOpts = append(pollOpts, usecase.WithPollMetrics(metrics))
	}

	var (
		fetcher  usecase.CycleFetcher
		provider usecase.LiveScoreProvider
		proxy    usecase.BulletinProxy
	)
	if client != nil {
		fetcher = usecase.NewFetcher(client, logger)
		provider = client
		proxy = client
	}
	scheduler := usecase.NewPollScheduler(fetcher, memory.NewFixtureStore(), pollCfg, pollOpts...)

	var featuredCache *cache.Store[usecase.FeaturedMatches]
	if cfg.CacheEnabled {
		featuredCache = cache.NewStore[usecase.FeaturedMatches](cfg.CacheTTL, cache.WithMaxEntries(featuredCacheEntries))
	}
	service := usecase.NewLiveScoreService(scheduler, provider, proxy, featuredCache, usecase.LiveScoreServiceConfig{
		PauseWhenIdle: cfg.LiveScoresPauseWhenIdle,
		Logger:        logger,
	})

	handler := httpapi.NewHandler(service, hub, httpapi.HandlerConfig{
		Logger:         logger,
		IDs:            idgen.NewUUIDGenerator(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		WriteTimeout:   cfg.StreamWriteTimeout,
	})

	routerCfg := httpapi.RouterConfig{
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if metrics != nil {
		routerCfg.Metrics = metrics
		routerCfg.MetricsHandler = metrics.Handler()
	}

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      httpapi.NewRouter(handler, routerCfg),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Scheduler: scheduler,
		hub:       hub,
		logger:    logger,
	}, nil
}

// newLiveScoresClient returns a nil client and the reason when the upstream
// is not usable; the board then runs disabled with that reason as its error.
func newLiveScoresClient(cfg config.Config, logger *logging.Logger, metrics *observability.Metrics) (*livescores.Client, error) {
	if strings.TrimSpace(cfg.LiveScoresBaseURL) == "" {
		return nil, errors.New("LIVESCORES_API_BASE_URL is not configured")
	}

	clientCfg := livescores.ClientConfig{
		BaseURL: cfg.LiveScoresBaseURL,
		Timeout: cfg.LiveScoresTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LiveScoresCircuitEnabled,
			FailureThreshold: cfg.LiveScoresCircuitFailureCount,
			OpenTimeout:      cfg.LiveScoresCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LiveScoresCircuitHalfOpenMaxReq,
		},
	}
	if metrics != nil {
		clientCfg.Observer = metrics
	}

	client, err := livescores.NewClient(clientCfg)
	if err != nil {
		logger.Error("live scores client disabled", "error", err)
		return nil, err
	}
	return client, nil
}

// Start runs the first poll cycle and arms the timer. It blocks until the
// first cycle settled so the first request already sees a board.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
}

// Shutdown drains HTTP, stops polling and disconnects stream viewers.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	a.Scheduler.Stop()
	a.hub.Close()
	if err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.logger.Info("app stopped")
	return nil
}
