package ticker

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the schedulers rely on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Factory arms a new ticker firing every d.
type Factory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func NewReal(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }

func (r *realTicker) Stop() { r.t.Stop() }

// Manual is a hand-driven Factory for tests. Every armed ticker is tracked
// so callers can assert how many are alive.
type Manual struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Factory() Factory {
	return func(d time.Duration) Ticker {
		t := &ManualTicker{interval: d, ch: make(chan time.Time, 1)}
		m.mu.Lock()
		m.tickers = append(m.tickers, t)
		m.mu.Unlock()
		return t
	}
}

// Armed returns the number of tickers created so far.
func (m *Manual) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

// Active returns the number of tickers that were not stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.tickers {
		if !t.Stopped() {
			count++
		}
	}
	return count
}

// Last returns the most recently armed ticker, or nil.
func (m *Manual) Last() *ManualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tickers) == 0 {
		return nil
	}
	return m.tickers[len(m.tickers)-1]
}

// Fire delivers one tick to every active ticker.
func (m *Manual) Fire(at time.Time) {
	m.mu.Lock()
	tickers := append([]*ManualTicker(nil), m.tickers...)
	m.mu.Unlock()
	for _, t := range tickers {
		t.Fire(at)
	}
}

type ManualTicker struct {
	mu       sync.Mutex
	interval time.Duration
	ch       chan time.Time
	stopped  bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *ManualTicker) Interval() time.Duration {
	return t.interval
}

// Fire delivers a tick unless the ticker is stopped. Like time.Ticker,
// a tick is dropped when the previous one was not consumed yet.
func (t *ManualTicker) Fire(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	select {
	case t.ch <- at:
	default:
	}
}
