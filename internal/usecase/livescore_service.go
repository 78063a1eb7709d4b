package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/cache"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultFeaturedDays  = 3
	maxFeaturedDays      = 14
	defaultFeaturedLimit = 20
	maxFeaturedLimit     = 100
)

type FeaturedResult struct {
	Live      []match.Record
	Upcoming  []match.Record
	Error     string
	FetchedAt time.Time
}

type LiveScoreServiceConfig struct {
	// PauseWhenIdle ties board visibility to the number of connected viewers.
	PauseWhenIdle bool
	Logger        *logging.Logger
}

// LiveScoreService is the entry point used by the HTTP layer.
type LiveScoreService struct {
	scheduler *PollScheduler
	provider  LiveScoreProvider
	proxy     BulletinProxy
	featured  *cache.Store[FeaturedMatches]
	logger    *logging.Logger
	now       func() time.Time

	pauseWhenIdle bool
	viewersMu     sync.Mutex
	viewers       int
}

// NewLiveScoreService wires the board. provider, proxy and featuredCache may be nil.
func NewLiveScoreService(
	scheduler *PollScheduler,
	provider LiveScoreProvider,
	proxy BulletinProxy,
	featuredCache *cache.Store[FeaturedMatches],
	cfg LiveScoreServiceConfig,
) *LiveScoreService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &LiveScoreService{
		scheduler:     scheduler,
		provider:      provider,
		proxy:         proxy,
		featured:      featuredCache,
		logger:        logger.Named("livescores"),
		now:           time.Now,
		pauseWhenIdle: cfg.PauseWhenIdle,
	}
}

func (s *LiveScoreService) Board(ctx context.Context) BoardSnapshot {
	_, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.Board")
	defer span.End()

	return s.scheduler.Snapshot()
}

func (s *LiveScoreService) Refresh(ctx context.Context) (BoardSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.Refresh")
	defer span.End()

	snapshot, err := s.scheduler.Refresh(ctx)
	if err != nil {
		recordSpanError(span, err)
		return snapshot, fmt.Errorf("refresh board: %w", err)
	}
	return snapshot, nil
}

func (s *LiveScoreService) Fixture(ctx context.Context, fixtureID int64) (match.Record, error) {
	_, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.Fixture", attribute.Int64("fixture.id", fixtureID))
	defer span.End()

	if fixtureID <= 0 {
		return match.Record{}, fmt.Errorf("%w: fixture id must be positive", ErrInvalidInput)
	}
	item, ok := s.scheduler.Lookup(fixtureID)
	if !ok {
		return match.Record{}, fmt.Errorf("%w: fixture=%d", ErrNotFound, fixtureID)
	}
	return item, nil
}

func (s *LiveScoreService) SetAutoRefresh(ctx context.Context, enabled bool) BoardSnapshot {
	s.scheduler.SetAutoRefresh(enabled)
	s.logger.InfoContext(ctx, "auto refresh toggled", "enabled", enabled)
	return s.scheduler.Snapshot()
}

// ViewerJoined and ViewerLeft drive visibility when PauseWhenIdle is set.
// The visibility change is applied under viewersMu so it follows the count.
func (s *LiveScoreService) ViewerJoined(ctx context.Context) int {
	s.viewersMu.Lock()
	defer s.viewersMu.Unlock()

	s.viewers++
	if s.pauseWhenIdle && s.viewers == 1 {
		s.logger.DebugContext(ctx, "first viewer connected, resuming polling")
		s.scheduler.SetVisible(true)
	}
	return s.viewers
}

func (s *LiveScoreService) ViewerLeft(ctx context.Context) int {
	s.viewersMu.Lock()
	defer s.viewersMu.Unlock()

	if s.viewers > 0 {
		s.viewers--
	}
	if s.pauseWhenIdle && s.viewers == 0 {
		s.logger.DebugContext(ctx, "last viewer left, pausing polling")
		s.scheduler.SetVisible(false)
	}
	return s.viewers
}

// Featured returns live and upcoming picks. Upstream failures produce empty
// lists with Error set instead of an error return.
func (s *LiveScoreService) Featured(ctx context.Context, query FeaturedQuery) (FeaturedResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.Featured")
	defer span.End()

	query, err := normalizeFeaturedQuery(query)
	if err != nil {
		return FeaturedResult{}, err
	}

	empty := FeaturedResult{
		Live:      make([]match.Record, 0),
		Upcoming:  make([]match.Record, 0),
		FetchedAt: s.now(),
	}
	if s.provider == nil {
		empty.Error = "live scores provider is not configured"
		return empty, nil
	}

	load := func(ctx context.Context) (FeaturedMatches, error) {
		return s.provider.Featured(ctx, query)
	}

	var matches FeaturedMatches
	if s.featured != nil {
		matches, err = s.featured.GetOrLoad(ctx, query.CacheKey(), load)
	} else {
		matches, err = load(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "featured fetch failed", "days", query.Days, "limit", query.Limit, "error", err)
		empty.Error = err.Error()
		return empty, nil
	}

	return FeaturedResult{
		Live:      nonNil(matches.Live),
		Upcoming:  nonNil(matches.Upcoming),
		FetchedAt: s.now(),
	}, nil
}

func (s *LiveScoreService) ProxyBulletin(ctx context.Context, rawQuery string) (ProxiedResponse, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveScoreService.ProxyBulletin")
	defer span.End()

	if s.proxy == nil {
		return ProxiedResponse{}, fmt.Errorf("%w: live scores provider is not configured", ErrDependencyUnavailable)
	}
	return s.proxy.ProxyBulletin(ctx, rawQuery)
}

func normalizeFeaturedQuery(query FeaturedQuery) (FeaturedQuery, error) {
	if query.Days < 0 || query.Days > maxFeaturedDays {
		return query, fmt.Errorf("%w: days must be between 0 and %d", ErrInvalidInput, maxFeaturedDays)
	}
	if query.Limit < 0 || query.Limit > maxFeaturedLimit {
		return query, fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidInput, maxFeaturedLimit)
	}
	if query.Days == 0 {
		query.Days = defaultFeaturedDays
	}
	if query.Limit == 0 {
		query.Limit = defaultFeaturedLimit
	}

	leagues := make([]string, 0, len(query.IncludeLeagues))
	for _, item := range query.IncludeLeagues {
		if item = strings.TrimSpace(item); item != "" {
			leagues = append(leagues, item)
		}
	}
	query.IncludeLeagues = leagues

	return query, nil
}
