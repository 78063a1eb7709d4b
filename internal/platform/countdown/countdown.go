// Package countdown turns a kickoff timestamp into a once-per-second
// remaining-time display.
package countdown

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/livescore-board/internal/platform/ticker"
)

// StartedLabel replaces the duration once the target time is reached.
const StartedLabel = "LIVE"

const tickInterval = time.Second

// Reading is one evaluation of a countdown.
type Reading struct {
	At        time.Time     `json:"at"`
	Remaining time.Duration `json:"-"`
	Seconds   int64         `json:"remaining_seconds"`
	Label     string        `json:"label"`
	Started   bool          `json:"started"`
}

// Remaining returns target-now, clamped to zero.
func Remaining(target, now time.Time) time.Duration {
	d := target.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Format renders d as HH:MM:SS, prefixed with "Nd " when at least a day remains.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func Label(target, now time.Time) string {
	return Evaluate(target, now).Label
}

func Evaluate(target, now time.Time) Reading {
	remaining := Remaining(target, now)
	// Sub-second remainders display as 00:00:00 otherwise; treat them as started.
	if remaining < time.Second {
		return Reading{At: now, Label: StartedLabel, Started: true}
	}
	return Reading{
		At:        now,
		Remaining: remaining,
		Seconds:   int64(remaining / time.Second),
		Label:     Format(remaining),
	}
}

// ElapsedMinute returns whole minutes since kickoff, never negative.
func ElapsedMinute(kickoff, now time.Time) int {
	if now.Before(kickoff) {
		return 0
	}
	return int(now.Sub(kickoff) / time.Minute)
}

// Clock re-evaluates one target on a fixed one second tick.
type Clock struct {
	target    time.Time
	now       func() time.Time
	newTicker ticker.Factory
}

type Option func(*Clock)

func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

func WithTicker(factory ticker.Factory) Option {
	return func(c *Clock) {
		if factory != nil {
			c.newTicker = factory
		}
	}
}

func NewClock(target time.Time, opts ...Option) *Clock {
	c := &Clock{
		target:    target,
		now:       time.Now,
		newTicker: ticker.NewReal,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Clock) Target() time.Time {
	return c.target
}

// Run emits a reading immediately and then once per tick. It returns after
// the started reading was emitted or when ctx is done.
func (c *Clock) Run(ctx context.Context, emit func(Reading)) {
	reading := Evaluate(c.target, c.now())
	emit(reading)
	if reading.Started {
		return
	}

	t := c.newTicker(tickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			reading = Evaluate(c.target, c.now())
			emit(reading)
			if reading.Started {
				return
			}
		}
	}
}
