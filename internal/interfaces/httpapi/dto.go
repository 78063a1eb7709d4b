package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/countdown"
	"github.com/riskibarqy/livescore-board/internal/usecase"
)

type matchDTO struct {
	match.Record
	Live    bool   `json:"live"`
	Display string `json:"display"`
}

type dateRangeDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type boardDTO struct {
	Items       []matchDTO    `json:"items"`
	Count       int           `json:"count"`
	LiveCount   int           `json:"live_count"`
	State       string        `json:"state"`
	AutoRefresh bool          `json:"auto_refresh"`
	Visible     bool          `json:"visible"`
	LastError   string        `json:"last_error,omitempty"`
	LastErrorAt *time.Time    `json:"last_error_at,omitempty"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
	IntervalMs  int64         `json:"interval_ms"`
	Range       *dateRangeDTO `json:"range,omitempty"`
}

type featuredDTO struct {
	Live      []matchDTO `json:"live"`
	Upcoming  []matchDTO `json:"upcoming"`
	Error     string     `json:"error,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

type streamMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type streamErrorDTO struct {
	Message string `json:"message"`
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type viewerMessage struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible,omitempty"`
}

const (
	streamTypeBoard     = "board"
	streamTypeCountdown = "countdown"
	streamTypeError     = "error"

	viewerMessageRefresh    = "refresh"
	viewerMessageVisibility = "visibility"
)

// displayLabel is the single text shown in a board row's time column.
func displayLabel(record match.Record, now time.Time) string {
	if minute, ok := record.Time.Minute(); ok {
		return strconv.Itoa(minute) + "'"
	}
	kickoff, hasKickoff := record.Kickoff()
	if hasKickoff && kickoff.After(now) {
		return countdown.Label(kickoff, now)
	}
	if status := record.Time.Status(); status != "" {
		return status
	}
	if hasKickoff {
		return countdown.StartedLabel
	}
	return ""
}

func matchesToDTO(items []match.Record, now time.Time) []matchDTO {
	out := make([]matchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, matchDTO{
			Record:  item,
			Live:    item.IsLive(),
			Display: displayLabel(item, now),
		})
	}
	return out
}

func boardToDTO(ctx context.Context, snapshot usecase.BoardSnapshot, now time.Time) boardDTO {
	_, span := startSpan(ctx, "httpapi.boardToDTO")
	defer span.End()

	out := boardDTO{
		Items:       matchesToDTO(snapshot.Items, now),
		Count:       len(snapshot.Items),
		LiveCount:   snapshot.LiveCount,
		State:       string(snapshot.State),
		AutoRefresh: snapshot.AutoRefresh,
		Visible:     snapshot.Visible,
		LastError:   snapshot.LastError,
		LastErrorAt: optionalTime(snapshot.LastErrorAt),
		UpdatedAt:   optionalTime(snapshot.UpdatedAt),
		IntervalMs:  snapshot.Interval.Milliseconds(),
	}
	if snapshot.Range.From != "" {
		out.Range = &dateRangeDTO{From: snapshot.Range.From, To: snapshot.Range.To}
	}
	return out
}

func featuredToDTO(result usecase.FeaturedResult, now time.Time) featuredDTO {
	return featuredDTO{
		Live:      matchesToDTO(result.Live, now),
		Upcoming:  matchesToDTO(result.Upcoming, now),
		Error:     result.Error,
		FetchedAt: result.FetchedAt,
	}
}

func optionalTime(v time.Time) *time.Time {
	if v.IsZero() {
		return nil
	}
	out := v.UTC()
	return &out
}
