package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/platform/ticker"
)

type stubFetcher struct {
	mu            sync.Mutex
	liveCalls     int
	bulletinCalls int
	ranges        []match.DateRange
	live          func(ctx context.Context, call int) FetchResult
	bulletin      func(ctx context.Context, call int) FetchResult
}

func (f *stubFetcher) LiveList(ctx context.Context) FetchResult {
	f.mu.Lock()
	f.liveCalls++
	call := f.liveCalls
	fn := f.live
	f.mu.Unlock()
	if fn == nil {
		return FetchResult{Items: make([]match.Record, 0)}
	}
	return fn(ctx, call)
}

func (f *stubFetcher) BulletinList(ctx context.Context, dateRange match.DateRange) FetchResult {
	f.mu.Lock()
	f.bulletinCalls++
	call := f.bulletinCalls
	f.ranges = append(f.ranges, dateRange)
	fn := f.bulletin
	f.mu.Unlock()
	if fn == nil {
		return FetchResult{Items: make([]match.Record, 0)}
	}
	return fn(ctx, call)
}

func (f *stubFetcher) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveCalls, f.bulletinCalls
}

type recordingPublisher struct {
	published chan BoardSnapshot
}

func (p *recordingPublisher) PublishBoard(_ context.Context, snapshot BoardSnapshot) {
	p.published <- snapshot
}

func records(ids ...int64) []match.Record {
	out := make([]match.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, match.Record{FixtureID: id})
	}
	return out
}

func fixtureIDs(items []match.Record) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.FixtureID)
	}
	return out
}

func newTestScheduler(fetcher CycleFetcher, cfg PollConfig, manual *ticker.Manual, opts ...PollOption) *PollScheduler {
	opts = append([]PollOption{
		WithPollTicker(manual.Factory()),
		WithPollLogger(logging.NewNop()),
	}, opts...)
	return NewPollScheduler(fetcher, memory.NewFixtureStore(), cfg, opts...)
}

func TestEffectiveInterval(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		configured time.Duration
		want       time.Duration
	}{
		{name: "below floor", configured: 500 * time.Millisecond, want: 3 * time.Second},
		{name: "zero", configured: 0, want: 3 * time.Second},
		{name: "at floor", configured: 3 * time.Second, want: 3 * time.Second},
		{name: "above floor", configured: 15 * time.Second, want: 15 * time.Second},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := EffectiveInterval(tc.configured); got != tc.want {
				t.Fatalf("unexpected interval: got=%s want=%s", got, tc.want)
			}
		})
	}
}

func TestPollScheduler_ArmsTimerWithFlooredInterval(t *testing.T) {
	t.Parallel()

	manual := ticker.NewManual()
	scheduler := newTestScheduler(&stubFetcher{}, PollConfig{Interval: 500 * time.Millisecond, AutoRefresh: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	if manual.Last() == nil {
		t.Fatalf("expected a ticker to be armed")
	}
	if got := manual.Last().Interval(); got != 3*time.Second {
		t.Fatalf("unexpected armed interval: got=%s want=3s", got)
	}
	if got := scheduler.Snapshot().Interval; got != 3*time.Second {
		t.Fatalf("unexpected snapshot interval: got=%s want=3s", got)
	}
}

func TestPollScheduler_RepeatedVisibilityTogglesKeepOneTimer(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{Interval: 5 * time.Second, AutoRefresh: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	for i := 0; i < 5; i++ {
		scheduler.SetVisible(false)
		if got := manual.Active(); got != 0 {
			t.Fatalf("expected no active timer while hidden, got=%d", got)
		}
		if state := scheduler.Snapshot().State; state != PollStatePaused {
			t.Fatalf("unexpected state while hidden: %s", state)
		}
		scheduler.SetVisible(true)
		scheduler.SetVisible(true)
	}

	if got := manual.Active(); got != 1 {
		t.Fatalf("unexpected active timers: got=%d want=1", got)
	}
	if got := manual.Armed(); got != 6 {
		t.Fatalf("unexpected armed timers: got=%d want=6", got)
	}
	if live, bulletin := fetcher.calls(); live != 1 || bulletin != 1 {
		t.Fatalf("visibility changes must not fetch: live=%d bulletin=%d", live, bulletin)
	}
}

func TestPollScheduler_TimerTickCommitsAndPublishes(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			return FetchResult{Items: records(int64(call))}
		},
	}
	publisher := &recordingPublisher{published: make(chan BoardSnapshot, 4)}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, manual, WithBoardPublisher(publisher))
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	initial := <-publisher.published
	if ids := fixtureIDs(initial.Items); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("unexpected initial board: %v", ids)
	}

	manual.Fire(time.Now())
	select {
	case snapshot := <-publisher.published:
		if ids := fixtureIDs(snapshot.Items); len(ids) != 1 || ids[0] != 2 {
			t.Fatalf("unexpected board after tick: %v", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer tick did not commit a cycle")
	}
}

func TestPollScheduler_EmptySourcesYieldEmptyBoard(t *testing.T) {
	t.Parallel()

	scheduler := newTestScheduler(&stubFetcher{}, PollConfig{AutoRefresh: true}, ticker.NewManual())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	snapshot := scheduler.Snapshot()
	if snapshot.Items == nil || len(snapshot.Items) != 0 {
		t.Fatalf("expected empty non-nil board, got %+v", snapshot.Items)
	}
	if snapshot.LastError != "" {
		t.Fatalf("unexpected error: %s", snapshot.LastError)
	}
	if snapshot.UpdatedAt.IsZero() {
		t.Fatalf("expected committed timestamp")
	}
}

func TestPollScheduler_BothSidesFailedKeepsLastKnownGood(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			if call == 1 {
				return FetchResult{Items: records(10)}
			}
			return FetchResult{Items: make([]match.Record, 0), Err: "status=502"}
		},
		bulletin: func(_ context.Context, call int) FetchResult {
			if call == 1 {
				return FetchResult{Items: records(20)}
			}
			return FetchResult{Items: make([]match.Record, 0), Err: "timeout"}
		},
	}
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, ticker.NewManual())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	snapshot, err := scheduler.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(snapshot.Items); got != 2 {
		t.Fatalf("expected last known good board to survive, got=%d items", got)
	}
	if !strings.Contains(snapshot.LastError, "live: status=502") || !strings.Contains(snapshot.LastError, "bulletin: timeout") {
		t.Fatalf("unexpected error text: %q", snapshot.LastError)
	}
	if snapshot.LastErrorAt.IsZero() {
		t.Fatalf("expected error timestamp")
	}
}

func TestPollScheduler_FailedSideCountsAsEmpty(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		live: func(context.Context, int) FetchResult {
			return FetchResult{Items: make([]match.Record, 0), Err: "boom"}
		},
		bulletin: func(context.Context, int) FetchResult {
			return FetchResult{Items: records(3, 1)}
		},
	}
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, ticker.NewManual())

	snapshot, err := scheduler.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ids := fixtureIDs(snapshot.Items)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected board: %v", ids)
	}
	if snapshot.LastError != "live: boom" {
		t.Fatalf("unexpected error text: %q", snapshot.LastError)
	}

	fetcher.mu.Lock()
	fetcher.live = nil
	fetcher.mu.Unlock()
	snapshot, _ = scheduler.Refresh(context.Background())
	if snapshot.LastError != "" || !snapshot.LastErrorAt.IsZero() {
		t.Fatalf("expected error to clear on success, got %q", snapshot.LastError)
	}
}

func TestPollScheduler_AutoRefreshOffRunsInitialCycleOnly(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: false}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	if state := scheduler.Snapshot().State; state != PollStatePaused {
		t.Fatalf("unexpected state: %s", state)
	}
	if live, _ := fetcher.calls(); live != 1 {
		t.Fatalf("expected one initial fetch, got=%d", live)
	}
	if manual.Armed() != 0 {
		t.Fatalf("expected no timer while auto-refresh is off")
	}

	scheduler.SetAutoRefresh(true)
	if state := scheduler.Snapshot().State; state != PollStateRunning {
		t.Fatalf("unexpected state after enabling: %s", state)
	}
	if manual.Active() != 1 {
		t.Fatalf("expected one active timer, got=%d", manual.Active())
	}

	scheduler.SetAutoRefresh(false)
	if manual.Active() != 0 {
		t.Fatalf("expected timer cleared after disabling")
	}
}

func TestPollScheduler_StartHiddenWaitsForViewer(t *testing.T) {
	t.Parallel()

	manual := ticker.NewManual()
	scheduler := newTestScheduler(&stubFetcher{}, PollConfig{AutoRefresh: true, StartHidden: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	if manual.Armed() != 0 {
		t.Fatalf("expected no timer before the board becomes visible")
	}
	scheduler.SetVisible(true)
	if manual.Active() != 1 {
		t.Fatalf("expected timer after becoming visible")
	}
}

func TestPollScheduler_ConfigErrorDisablesPolling(t *testing.T) {
	t.Parallel()

	manual := ticker.NewManual()
	scheduler := newTestScheduler(&stubFetcher{}, PollConfig{
		AutoRefresh: true,
		ConfigError: errors.New("LIVESCORES_API_BASE_URL is empty"),
	}, manual)

	scheduler.Start(context.Background())
	scheduler.Tick(context.Background())
	if manual.Armed() != 0 {
		t.Fatalf("disabled scheduler must not arm a timer")
	}

	_, err := scheduler.Refresh(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}

	snapshot := scheduler.Snapshot()
	if snapshot.State != PollStateIdle {
		t.Fatalf("unexpected state: %s", snapshot.State)
	}
	if snapshot.LastError != "LIVESCORES_API_BASE_URL is empty" {
		t.Fatalf("unexpected persistent error: %q", snapshot.LastError)
	}
}

func TestPollScheduler_PassesConfiguredDateRange(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	now := time.Date(2024, time.January, 3, 10, 0, 0, 0, time.UTC)
	scheduler := newTestScheduler(fetcher, PollConfig{DaysBack: 1, DaysAhead: 6}, ticker.NewManual(),
		WithPollClock(func() time.Time { return now }))

	snapshot, err := scheduler.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fetcher.mu.Lock()
	got := fetcher.ranges[0]
	fetcher.mu.Unlock()
	want := match.DateRange{From: "2024-01-02", To: "2024-01-09"}
	if got != want {
		t.Fatalf("unexpected range: got=%+v want=%+v", got, want)
	}
	if snapshot.Range != want {
		t.Fatalf("unexpected snapshot range: got=%+v want=%+v", snapshot.Range, want)
	}
}

func TestPollScheduler_StaleCycleIsDiscarded(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			if call == 1 {
				close(entered)
				<-release
				return FetchResult{Items: records(1)}
			}
			return FetchResult{Items: records(2)}
		},
	}
	scheduler := newTestScheduler(fetcher, PollConfig{}, ticker.NewManual())

	slow := make(chan BoardSnapshot, 1)
	go func() {
		snapshot, _ := scheduler.Refresh(context.Background())
		slow <- snapshot
	}()
	<-entered

	if _, err := scheduler.Refresh(context.Background()); err != nil {
		t.Fatalf("fast refresh: %v", err)
	}
	close(release)
	<-slow

	ids := fixtureIDs(scheduler.Snapshot().Items)
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("older cycle overwrote newer board: %v", ids)
	}
}

func TestPollScheduler_StopAbortsInFlightAndDiscardsBoard(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	fetcher := &stubFetcher{
		live: func(ctx context.Context, call int) FetchResult {
			if call == 1 {
				return FetchResult{Items: records(1)}
			}
			close(entered)
			<-ctx.Done()
			return FetchResult{Items: make([]match.Record, 0), Err: ctx.Err().Error()}
		},
	}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, manual)
	scheduler.Start(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := scheduler.Refresh(context.Background())
		errCh <- err
	}()
	<-entered
	scheduler.Stop()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected in-flight refresh to be canceled, got %v", err)
	}
	snapshot := scheduler.Snapshot()
	if snapshot.State != PollStateIdle {
		t.Fatalf("unexpected state: %s", snapshot.State)
	}
	if len(snapshot.Items) != 0 {
		t.Fatalf("expected board to be discarded, got=%d items", len(snapshot.Items))
	}
	if manual.Active() != 0 {
		t.Fatalf("expected timer to be cleared")
	}
}

func TestPollScheduler_PauseAbortsTimerCycle(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	aborted := make(chan struct{})
	fetcher := &stubFetcher{
		live: func(ctx context.Context, call int) FetchResult {
			if call == 1 {
				return FetchResult{Items: records(1)}
			}
			close(entered)
			<-ctx.Done()
			close(aborted)
			return FetchResult{Items: make([]match.Record, 0), Err: ctx.Err().Error()}
		},
	}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	manual.Fire(time.Now())
	<-entered
	scheduler.SetVisible(false)

	select {
	case <-aborted:
	case <-time.After(2 * time.Second):
		t.Fatalf("pausing did not abort the in-flight timer cycle")
	}

	snapshot := scheduler.Snapshot()
	if ids := fixtureIDs(snapshot.Items); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("paused board must keep its data, got %v", ids)
	}
	if snapshot.LastError != "" {
		t.Fatalf("aborted cycle must not record an error, got %q", snapshot.LastError)
	}
}

func TestPollScheduler_ArmsTimerAfterInitialCycle(t *testing.T) {
	t.Parallel()

	manual := ticker.NewManual()
	armedDuringInitial := -1
	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			if call == 1 {
				armedDuringInitial = manual.Armed()
			}
			return FetchResult{Items: records(1)}
		},
	}
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	if armedDuringInitial != 0 {
		t.Fatalf("timer armed before the initial cycle settled: armed=%d", armedDuringInitial)
	}
	if manual.Armed() != 1 || manual.Active() != 1 {
		t.Fatalf("expected timer armed after start, armed=%d active=%d", manual.Armed(), manual.Active())
	}
	if state := scheduler.Snapshot().State; state != PollStateRunning {
		t.Fatalf("unexpected state: %s", state)
	}
}

func TestPollScheduler_VisibilityDuringInitialCycleAppliesAfterIt(t *testing.T) {
	t.Parallel()

	manual := ticker.NewManual()
	var scheduler *PollScheduler
	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			if call == 1 {
				scheduler.SetVisible(true)
			}
			return FetchResult{Items: make([]match.Record, 0)}
		},
	}
	scheduler = newTestScheduler(fetcher, PollConfig{AutoRefresh: true, StartHidden: true}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	if manual.Armed() != 1 || manual.Active() != 1 {
		t.Fatalf("expected a single timer armed after start, armed=%d active=%d", manual.Armed(), manual.Active())
	}
}

func TestPollScheduler_RefreshWhileRunningKeepsTimer(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{
		live: func(_ context.Context, call int) FetchResult {
			return FetchResult{Items: records(int64(call))}
		},
	}
	publisher := &recordingPublisher{published: make(chan BoardSnapshot, 4)}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: true}, manual, WithBoardPublisher(publisher))
	scheduler.Start(context.Background())
	defer scheduler.Stop()
	<-publisher.published

	armed := manual.Last()
	snapshot, err := scheduler.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	<-publisher.published
	if ids := fixtureIDs(snapshot.Items); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected board after refresh: %v", ids)
	}
	if snapshot.State != PollStateRunning {
		t.Fatalf("unexpected state after refresh: %s", snapshot.State)
	}
	if manual.Armed() != 1 || manual.Active() != 1 || manual.Last() != armed {
		t.Fatalf("refresh must not touch the timer, armed=%d active=%d", manual.Armed(), manual.Active())
	}

	manual.Fire(time.Now())
	select {
	case snapshot := <-publisher.published:
		if ids := fixtureIDs(snapshot.Items); len(ids) != 1 || ids[0] != 3 {
			t.Fatalf("unexpected board after tick: %v", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer stopped ticking after refresh")
	}
}

func TestPollScheduler_RefreshWhilePausedStaysPaused(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	manual := ticker.NewManual()
	scheduler := newTestScheduler(fetcher, PollConfig{AutoRefresh: false}, manual)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	snapshot, err := scheduler.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snapshot.State != PollStatePaused || scheduler.Snapshot().State != PollStatePaused {
		t.Fatalf("refresh must not leave paused, got %s", snapshot.State)
	}
	if manual.Armed() != 0 {
		t.Fatalf("refresh must not arm a timer, armed=%d", manual.Armed())
	}
	if live, bulletin := fetcher.calls(); live != 2 || bulletin != 2 {
		t.Fatalf("expected initial and manual fetches, live=%d bulletin=%d", live, bulletin)
	}
}
