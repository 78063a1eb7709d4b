package httpapi

import (
	"testing"
	"time"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
)

func TestDisplayLabel(t *testing.T) {
	now := time.Date(2024, time.March, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record match.Record
		want   string
	}{
		{
			name:   "live minute wins over status",
			record: match.Record{Time: match.LiveMinute(55), KickoffUTC: "2024-03-09T14:05:00Z"},
			want:   "55'",
		},
		{
			name:   "future kickoff counts down",
			record: match.Record{Time: match.StatusLabel("NS"), KickoffUTC: "2024-03-09T16:30:00Z"},
			want:   "01:30:00",
		},
		{
			name:   "status text without future kickoff",
			record: match.Record{Time: match.StatusLabel("HT"), KickoffUTC: "2024-03-09T14:00:00Z"},
			want:   "HT",
		},
		{
			name:   "past kickoff without status is started",
			record: match.Record{KickoffUTC: "2024-03-09 14:00:00"},
			want:   "LIVE",
		},
		{
			name:   "nothing known",
			record: match.Record{KickoffUTC: "soon"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayLabel(tt.record, now); got != tt.want {
				t.Fatalf("displayLabel()=%q want=%q", got, tt.want)
			}
		})
	}
}
