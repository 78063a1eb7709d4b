package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/platform/ticker"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

// MinPollInterval is the floor applied to any configured refresh interval.
const MinPollInterval = 3 * time.Second

type PollState string

const (
	PollStateIdle    PollState = "idle"
	PollStateRunning PollState = "running"
	PollStatePaused  PollState = "paused"
)

const (
	TriggerInitial = "initial"
	TriggerTimer   = "timer"
	TriggerManual  = "manual"
	TriggerTick    = "tick"
)

const (
	CycleResultOK      = "ok"
	CycleResultPartial = "partial"
	CycleResultFailed  = "failed"
	CycleResultAborted = "aborted"
	CycleResultStale   = "stale"
)

// CycleFetcher is the pair of upstream reads one poll cycle needs.
type CycleFetcher interface {
	LiveList(ctx context.Context) FetchResult
	BulletinList(ctx context.Context, dateRange match.DateRange) FetchResult
}

// BoardPublisher is notified after every committed cycle.
type BoardPublisher interface {
	PublishBoard(ctx context.Context, snapshot BoardSnapshot)
}

type PollMetrics interface {
	ObservePollCycle(trigger, result string, elapsed time.Duration)
	SetBoardSize(total, live int)
}

type noopPollMetrics struct{}

func (noopPollMetrics) ObservePollCycle(string, string, time.Duration) {}
func (noopPollMetrics) SetBoardSize(int, int)                          {}

type PollConfig struct {
	Interval    time.Duration
	AutoRefresh bool
	// StartHidden makes the board invisible until the first SetVisible(true).
	StartHidden bool
	DaysBack    int
	DaysAhead   int
	// ConfigError disables the scheduler; it is reported as a persistent LastError.
	ConfigError error
}

type BoardSnapshot struct {
	Items       []match.Record
	LiveCount   int
	State       PollState
	AutoRefresh bool
	Visible     bool
	LastError   string
	LastErrorAt time.Time
	UpdatedAt   time.Time
	Interval    time.Duration
	Range       match.DateRange
}

type PollOption func(*PollScheduler)

func WithPollTicker(factory ticker.Factory) PollOption {
	return func(s *PollScheduler) {
		if factory != nil {
			s.newTicker = factory
		}
	}
}

func WithPollClock(now func() time.Time) PollOption {
	return func(s *PollScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithPollMetrics(metrics PollMetrics) PollOption {
	return func(s *PollScheduler) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithPollLogger(logger *logging.Logger) PollOption {
	return func(s *PollScheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithBoardPublisher(publisher BoardPublisher) PollOption {
	return func(s *PollScheduler) {
		s.publisher = publisher
	}
}

// PollScheduler keeps the fixture store in sync with the upstream sources.
// It polls on a fixed interval while the board is visible and auto-refresh
// is on, and pauses otherwise.
type PollScheduler struct {
	fetcher   CycleFetcher
	store     match.Store
	publisher BoardPublisher
	metrics   PollMetrics
	logger    *logging.Logger
	newTicker ticker.Factory
	now       func() time.Time

	interval  time.Duration
	daysBack  int
	daysAhead int
	configErr string

	mu          sync.Mutex
	state       PollState
	started     bool
	starting    bool
	autoRefresh bool
	visible     bool
	lastErr     string
	lastErrAt   time.Time
	updatedAt   time.Time
	lastRange   match.DateRange
	issued      uint64
	committed   uint64
	baseCtx     context.Context
	baseCancel  context.CancelFunc
	loopCancel  context.CancelFunc
	loopDone    chan struct{}
	activeTick  ticker.Ticker
}

func NewPollScheduler(fetcher CycleFetcher, store match.Store, cfg PollConfig, opts ...PollOption) *PollScheduler {
	s := &PollScheduler{
		fetcher:     fetcher,
		store:       store,
		metrics:     noopPollMetrics{},
		logger:      logging.Default(),
		newTicker:   ticker.NewReal,
		now:         time.Now,
		interval:    EffectiveInterval(cfg.Interval),
		daysBack:    max(cfg.DaysBack, 0),
		daysAhead:   max(cfg.DaysAhead, 0),
		state:       PollStateIdle,
		autoRefresh: cfg.AutoRefresh,
		visible:     !cfg.StartHidden,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("poller")
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	switch {
	case cfg.ConfigError != nil:
		s.configErr = cfg.ConfigError.Error()
	case fetcher == nil:
		s.configErr = "live scores provider is not configured"
	}
	if s.configErr != "" {
		s.lastErr = s.configErr
		s.lastErrAt = s.now()
	}

	return s
}

// EffectiveInterval applies the MinPollInterval floor.
func EffectiveInterval(configured time.Duration) time.Duration {
	if configured < MinPollInterval {
		return MinPollInterval
	}
	return configured
}

func (s *PollScheduler) Interval() time.Duration {
	return s.interval
}

func (s *PollScheduler) Disabled() bool {
	return s.configErr != ""
}

// Start runs the first cycle and only then arms the timer when polling is
// allowed. It blocks until the first cycle settles. Calling Start twice is a
// no-op.
func (s *PollScheduler) Start(ctx context.Context) {
	if s.Disabled() {
		s.logger.WarnContext(ctx, "poll scheduler disabled", "reason", s.configErr)
		return
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.starting = true
	s.state = PollStatePaused
	s.mu.Unlock()

	_, _ = s.cycle(ctx, TriggerInitial)

	s.mu.Lock()
	s.starting = false
	s.applyStateLocked()
	state := s.state
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "poll scheduler started", "state", state, "interval", s.interval.String())
}

// Stop returns to idle, aborts in-flight cycles and discards the board.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	done := s.loopDone
	s.disarmLocked()
	s.baseCancel()
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.started = false
	s.starting = false
	s.state = PollStateIdle
	s.committed = s.issued
	s.store.Replace(nil)
	s.updatedAt = time.Time{}
	s.lastRange = match.DateRange{}
	if s.configErr == "" {
		s.lastErr = ""
		s.lastErrAt = time.Time{}
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.logger.Info("poll scheduler stopped")
}

// SetVisible feeds the visibility signal. Hiding pauses polling and keeps
// the data; showing resumes on a fresh interval without an immediate cycle.
func (s *PollScheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visible == visible {
		return
	}
	s.visible = visible
	s.applyStateLocked()
}

// SetAutoRefresh is the user toggle for timed polling.
func (s *PollScheduler) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoRefresh == enabled {
		return
	}
	s.autoRefresh = enabled
	s.applyStateLocked()
}

// Refresh runs one cycle now regardless of state and leaves the timer alone.
func (s *PollScheduler) Refresh(ctx context.Context) (BoardSnapshot, error) {
	if s.Disabled() {
		return s.Snapshot(), fmt.Errorf("%w: %s", ErrDependencyUnavailable, s.configErr)
	}

	snapshot, err := s.cycle(ctx, TriggerManual)
	if err != nil {
		return s.Snapshot(), err
	}
	return snapshot, nil
}

// Tick runs one cycle synchronously. It does nothing while idle or disabled.
func (s *PollScheduler) Tick(ctx context.Context) {
	if s.Disabled() {
		return
	}
	s.mu.Lock()
	idle := s.state == PollStateIdle
	s.mu.Unlock()
	if idle {
		return
	}
	_, _ = s.cycle(ctx, TriggerTick)
}

// Lookup returns one fixture from the committed board.
func (s *PollScheduler) Lookup(fixtureID int64) (match.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(fixtureID)
}

func (s *PollScheduler) Snapshot() BoardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PollScheduler) snapshotLocked() BoardSnapshot {
	items := s.store.List()
	return BoardSnapshot{
		Items:       items,
		LiveCount:   match.CountLive(items),
		State:       s.state,
		AutoRefresh: s.autoRefresh,
		Visible:     s.visible,
		LastError:   s.lastErr,
		LastErrorAt: s.lastErrAt,
		UpdatedAt:   s.updatedAt,
		Interval:    s.interval,
		Range:       s.lastRange,
	}
}

// applyStateLocked moves between running and paused. Idle is left only by
// Start, and nothing is armed until its first cycle has settled.
func (s *PollScheduler) applyStateLocked() {
	if s.state == PollStateIdle || s.starting {
		return
	}

	wantRunning := s.autoRefresh && s.visible
	switch {
	case wantRunning && s.state != PollStateRunning:
		s.state = PollStateRunning
		s.armLocked()
	case !wantRunning && s.state == PollStateRunning:
		s.state = PollStatePaused
		s.disarmLocked()
	}
}

func (s *PollScheduler) armLocked() {
	if s.loopCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	t := s.newTicker(s.interval)
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	s.activeTick = t

	go s.loop(ctx, t, done)
}

func (s *PollScheduler) disarmLocked() {
	if s.loopCancel == nil {
		return
	}
	s.loopCancel()
	s.activeTick.Stop()
	s.loopCancel = nil
	s.loopDone = nil
	s.activeTick = nil
}

func (s *PollScheduler) loop(ctx context.Context, t ticker.Ticker, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			_, _ = s.cycle(ctx, TriggerTimer)
		}
	}
}

// cycle fetches both sources, reconciles and commits. Nothing is committed
// when the context is cancelled or a newer cycle has already committed.
func (s *PollScheduler) cycle(parent context.Context, trigger string) (BoardSnapshot, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	base := s.baseCtx
	dateRange := match.RangeAround(s.now(), s.daysBack, s.daysAhead)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stopAfter := context.AfterFunc(base, cancel)
	defer stopAfter()

	ctx, span := startUsecaseSpan(ctx, "usecase.PollScheduler.cycle",
		attribute.String("poll.trigger", trigger),
		attribute.Int64("poll.seq", int64(seq)),
	)
	defer span.End()

	startedAt := time.Now()
	var live, bulletin FetchResult
	var wg conc.WaitGroup
	wg.Go(func() { live = s.fetcher.LiveList(ctx) })
	wg.Go(func() { bulletin = s.fetcher.BulletinList(ctx, dateRange) })
	if recovered := wg.WaitAndRecover(); recovered != nil {
		msg := fmt.Sprintf("poll cycle panicked: %v", recovered.Value)
		live = FetchResult{Items: make([]match.Record, 0), Err: msg}
		bulletin = FetchResult{Items: make([]match.Record, 0), Err: msg}
		s.logger.ErrorContext(ctx, "poll cycle panicked", "trigger", trigger, "panic", recovered.Value)
	}

	if err := ctx.Err(); err != nil {
		s.metrics.ObservePollCycle(trigger, CycleResultAborted, time.Since(startedAt))
		s.logger.DebugContext(ctx, "poll cycle aborted", "trigger", trigger, "seq", seq)
		return BoardSnapshot{}, err
	}

	result := CycleResultOK
	switch {
	case live.Failed() && bulletin.Failed():
		result = CycleResultFailed
	case live.Failed() || bulletin.Failed():
		result = CycleResultPartial
	}

	s.mu.Lock()
	if seq <= s.committed {
		s.mu.Unlock()
		s.metrics.ObservePollCycle(trigger, CycleResultStale, time.Since(startedAt))
		s.logger.DebugContext(ctx, "discarding stale poll cycle", "trigger", trigger, "seq", seq)
		return s.Snapshot(), nil
	}

	now := s.now()
	if result != CycleResultFailed {
		s.store.Replace(match.Reconcile(live.Items, bulletin.Items))
		s.updatedAt = now
		s.lastRange = dateRange
	}
	s.committed = seq
	if msg := cycleError(live, bulletin); msg != "" {
		s.lastErr = msg
		s.lastErrAt = now
	} else {
		s.lastErr = ""
		s.lastErrAt = time.Time{}
	}
	snapshot := s.snapshotLocked()
	publisher := s.publisher
	s.mu.Unlock()

	span.SetAttributes(attribute.String("poll.result", result), attribute.Int("board.items", len(snapshot.Items)))
	s.metrics.ObservePollCycle(trigger, result, time.Since(startedAt))
	s.metrics.SetBoardSize(len(snapshot.Items), snapshot.LiveCount)
	if result != CycleResultOK {
		s.logger.WarnContext(ctx, "poll cycle degraded", "trigger", trigger, "result", result, "error", snapshot.LastError)
	}
	if publisher != nil {
		publisher.PublishBoard(ctx, snapshot)
	}

	return snapshot, nil
}

func cycleError(live, bulletin FetchResult) string {
	parts := make([]string, 0, 2)
	if live.Failed() {
		parts = append(parts, "live: "+live.Err)
	}
	if bulletin.Failed() {
		parts = append(parts, "bulletin: "+bulletin.Err)
	}
	return strings.Join(parts, "; ")
}
