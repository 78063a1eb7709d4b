package usecase

import (
	"context"
	"strings"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
)

// FetchResult is what one upstream call yields. Items is never nil; Err holds
// the failure message when the call did not succeed.
type FetchResult struct {
	Items []match.Record
	Err   string
}

func (r FetchResult) Failed() bool {
	return r.Err != ""
}

// Fetcher turns provider calls into FetchResults. It never returns an error
// to the caller and owns no shared state.
type Fetcher struct {
	provider LiveScoreProvider
	logger   *logging.Logger
}

func NewFetcher(provider LiveScoreProvider, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fetcher{provider: provider, logger: logger.Named("fetcher")}
}

func (f *Fetcher) LiveList(ctx context.Context) FetchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.Fetcher.LiveList")
	defer span.End()

	items, err := f.provider.LiveList(ctx)
	if err != nil {
		f.logger.WarnContext(ctx, "live list fetch failed", "error", err)
		return failedResult(err)
	}
	return FetchResult{Items: nonNil(items)}
}

func (f *Fetcher) BulletinList(ctx context.Context, dateRange match.DateRange) FetchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.Fetcher.BulletinList")
	defer span.End()

	page, err := f.provider.Bulletin(ctx, dateRange)
	if err != nil {
		f.logger.WarnContext(ctx, "bulletin fetch failed", "from", dateRange.From, "to", dateRange.To, "error", err)
		return failedResult(err)
	}
	if page.Skipped > 0 {
		f.logger.DebugContext(ctx, "bulletin contained unusable records", "skipped", page.Skipped, "count", page.Count)
	}
	return FetchResult{Items: nonNil(page.Items)}
}

func failedResult(err error) FetchResult {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "upstream request failed"
	}
	return FetchResult{Items: make([]match.Record, 0), Err: msg}
}

func nonNil(items []match.Record) []match.Record {
	if items == nil {
		return make([]match.Record, 0)
	}
	return items
}
