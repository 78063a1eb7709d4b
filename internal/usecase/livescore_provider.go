package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
)

// LiveScoreProvider is the upstream scores API.
type LiveScoreProvider interface {
	LiveList(ctx context.Context) ([]match.Record, error)
	Bulletin(ctx context.Context, dateRange match.DateRange) (BulletinPage, error)
	Featured(ctx context.Context, query FeaturedQuery) (FeaturedMatches, error)
}

// BulletinProxy forwards a bulletin request to the upstream untouched.
type BulletinProxy interface {
	ProxyBulletin(ctx context.Context, rawQuery string) (ProxiedResponse, error)
}

type BulletinPage struct {
	Range   match.DateRange
	Count   int
	Items   []match.Record
	Skipped int
	Diag    []string
}

type FeaturedQuery struct {
	Days           int
	Limit          int
	IncludeLeagues []string
}

// CacheKey is stable for equal queries regardless of league order or case.
func (q FeaturedQuery) CacheKey() string {
	leagues := make([]string, 0, len(q.IncludeLeagues))
	for _, item := range q.IncludeLeagues {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			leagues = append(leagues, item)
		}
	}
	sort.Strings(leagues)

	return "featured:days=" + strconv.Itoa(q.Days) +
		":limit=" + strconv.Itoa(q.Limit) +
		":leagues=" + strings.Join(leagues, ",")
}

type FeaturedMatches struct {
	Live     []match.Record
	Upcoming []match.Record
}

type ProxiedResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}
