package countdown_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/livescore-board/internal/platform/countdown"
	"github.com/riskibarqy/livescore-board/internal/platform/ticker"
	"github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	convey.Convey("Given durations to format", t, func() {
		convey.Convey("Then hours, minutes and seconds are zero padded", func() {
			convey.So(countdown.Format(time.Hour+2*time.Minute+3*time.Second), convey.ShouldEqual, "01:02:03")
			convey.So(countdown.Format(59*time.Second), convey.ShouldEqual, "00:00:59")
		})

		convey.Convey("Then days are prefixed only when present", func() {
			convey.So(countdown.Format(49*time.Hour+5*time.Second), convey.ShouldEqual, "2d 01:00:05")
			convey.So(countdown.Format(23*time.Hour), convey.ShouldEqual, "23:00:00")
		})

		convey.Convey("Then negative durations render as zero", func() {
			convey.So(countdown.Format(-time.Minute), convey.ShouldEqual, "00:00:00")
		})
	})
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

	convey.Convey("Given a target in the future", t, func() {
		reading := countdown.Evaluate(now.Add(90*time.Minute), now)

		convey.Convey("Then the remaining time is reported", func() {
			convey.So(reading.Started, convey.ShouldBeFalse)
			convey.So(reading.Label, convey.ShouldEqual, "01:30:00")
			convey.So(reading.Seconds, convey.ShouldEqual, 5400)
		})
	})

	convey.Convey("Given a target in the past", t, func() {
		reading := countdown.Evaluate(now.Add(-3*time.Hour), now)

		convey.Convey("Then the started state replaces the duration", func() {
			convey.So(reading.Started, convey.ShouldBeTrue)
			convey.So(reading.Label, convey.ShouldEqual, countdown.StartedLabel)
			convey.So(reading.Remaining, convey.ShouldEqual, time.Duration(0))
			convey.So(countdown.Remaining(now.Add(-3*time.Hour), now), convey.ShouldEqual, time.Duration(0))
		})
	})
}

func TestElapsedMinute(t *testing.T) {
	kickoff := time.Date(2024, time.January, 1, 18, 0, 0, 0, time.UTC)

	convey.Convey("Given a kickoff time", t, func() {
		convey.So(countdown.ElapsedMinute(kickoff, kickoff.Add(55*time.Minute+30*time.Second)), convey.ShouldEqual, 55)
		convey.So(countdown.ElapsedMinute(kickoff, kickoff.Add(-time.Minute)), convey.ShouldEqual, 0)
	})
}

func TestClockRun(t *testing.T) {
	convey.Convey("Given a clock three seconds before kickoff", t, func() {
		start := time.Date(2024, time.January, 1, 17, 59, 57, 0, time.UTC)

		var mu sync.Mutex
		now := start
		manual := ticker.NewManual()
		clock := countdown.NewClock(
			start.Add(3*time.Second),
			countdown.WithNow(func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				return now
			}),
			countdown.WithTicker(manual.Factory()),
		)

		readings := make(chan countdown.Reading, 8)
		done := make(chan struct{})
		go func() {
			clock.Run(context.Background(), func(r countdown.Reading) { readings <- r })
			close(done)
		}()

		first := <-readings
		convey.So(first.Label, convey.ShouldEqual, "00:00:03")

		for manual.Last() == nil {
			time.Sleep(time.Millisecond)
		}
		convey.So(manual.Last().Interval(), convey.ShouldEqual, time.Second)

		for i := 1; i <= 3; i++ {
			mu.Lock()
			now = start.Add(time.Duration(i) * time.Second)
			mu.Unlock()
			manual.Fire(now)
			<-readings
		}

		<-done
		convey.Convey("Then it stops after reporting the started state", func() {
			convey.So(manual.Active(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a clock whose target already passed", t, func() {
		manual := ticker.NewManual()
		clock := countdown.NewClock(time.Now().Add(-time.Hour), countdown.WithTicker(manual.Factory()))

		var got []countdown.Reading
		clock.Run(context.Background(), func(r countdown.Reading) { got = append(got, r) })

		convey.So(len(got), convey.ShouldEqual, 1)
		convey.So(got[0].Started, convey.ShouldBeTrue)
		convey.So(manual.Armed(), convey.ShouldEqual, 0)
	})
}
