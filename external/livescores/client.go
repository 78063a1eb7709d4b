package livescores

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/platform/resilience"
	"github.com/riskibarqy/livescore-board/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	livePath     = "/livescores/list"
	bulletinPath = "/livescores/bulletin"
	featuredPath = "/api/live/featured"

	maxBodyBytes = 6 << 20
)

const (
	EndpointLive     = "live"
	EndpointBulletin = "bulletin"
	EndpointFeatured = "featured"
	EndpointProxy    = "bulletin_proxy"
)

var errUpstreamTransient = crerr.New("livescores upstream transient failure")

// Observer receives one call per upstream request attempt.
type Observer interface {
	ObserveUpstreamRequest(endpoint, outcome string, elapsed time.Duration)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Observer       Observer
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	observer   Observer
	flight     resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "livescores api base url")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger.Named("livescores"),
		observer:   cfg.Observer,
	}

	breakerCfg := cfg.CircuitBreaker
	onChange := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		c.logger.Warn("livescores circuit breaker state changed", "from", from, "to", to)
		if onChange != nil {
			onChange(from, to)
		}
	}
	c.breaker = resilience.NewCircuitBreaker(breakerCfg)

	return c, nil
}

func (c *Client) LiveList(ctx context.Context) ([]match.Record, error) {
	raw, err := c.doGet(ctx, EndpointLive, livePath, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch live list: %w", err)
	}

	items, skipped, err := decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("decode live list: %w", err)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "skipped malformed live records", "skipped", skipped, "kept", len(items))
	}

	return items, nil
}

func (c *Client) Bulletin(ctx context.Context, dateRange match.DateRange) (usecase.BulletinPage, error) {
	query := url.Values{}
	query.Set("from", dateRange.From)
	query.Set("to", dateRange.To)

	raw, err := c.doGet(ctx, EndpointBulletin, bulletinPath, query)
	if err != nil {
		return usecase.BulletinPage{}, fmt.Errorf("fetch bulletin from=%s to=%s: %w", dateRange.From, dateRange.To, err)
	}

	var envelope bulletinEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return usecase.BulletinPage{}, fmt.Errorf("decode bulletin envelope: %w", err)
	}
	items, skipped, err := decodeRecords(envelope.Items)
	if err != nil {
		return usecase.BulletinPage{}, fmt.Errorf("decode bulletin items: %w", err)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "skipped malformed bulletin records", "skipped", skipped, "kept", len(items))
	}

	page := usecase.BulletinPage{
		Range:   envelope.Range,
		Count:   envelope.Count,
		Items:   items,
		Skipped: skipped,
		Diag:    envelope.Diag,
	}
	if !page.Range.Valid() {
		page.Range = dateRange
	}

	return page, nil
}

func (c *Client) Featured(ctx context.Context, query usecase.FeaturedQuery) (usecase.FeaturedMatches, error) {
	values := url.Values{}
	if query.Days > 0 {
		values.Set("days", strconv.Itoa(query.Days))
	}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if len(query.IncludeLeagues) > 0 {
		values.Set("include_leagues", strings.Join(query.IncludeLeagues, ","))
	}

	raw, err := c.doGet(ctx, EndpointFeatured, featuredPath, values)
	if err != nil {
		return usecase.FeaturedMatches{}, fmt.Errorf("fetch featured: %w", err)
	}

	var envelope featuredEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return usecase.FeaturedMatches{}, fmt.Errorf("decode featured envelope: %w", err)
	}

	live, _, err := decodeRecords(envelope.Live)
	if err != nil {
		return usecase.FeaturedMatches{}, fmt.Errorf("decode featured live: %w", err)
	}
	upcoming, _, err := decodeRecords(envelope.Upcoming)
	if err != nil {
		return usecase.FeaturedMatches{}, fmt.Errorf("decode featured upcoming: %w", err)
	}

	return usecase.FeaturedMatches{Live: live, Upcoming: upcoming}, nil
}

// ProxyBulletin relays the raw query to the bulletin endpoint and returns the
// upstream answer as is, whatever its status code.
func (c *Client) ProxyBulletin(ctx context.Context, rawQuery string) (usecase.ProxiedResponse, error) {
	fullURL := c.baseURL + bulletinPath
	if rawQuery = strings.TrimPrefix(rawQuery, "?"); rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return usecase.ProxiedResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(EndpointProxy, "transport_error", startedAt)
		return usecase.ProxiedResponse{}, fmt.Errorf("%w: send request: %v", usecase.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		c.observe(EndpointProxy, "transport_error", startedAt)
		return usecase.ProxiedResponse{}, fmt.Errorf("%w: read response body: %v", usecase.ErrDependencyUnavailable, err)
	}
	c.observe(EndpointProxy, outcomeForStatus(resp.StatusCode), startedAt)

	body := make([]byte, buf.Len())
	copy(body, buf.B)

	return usecase.ProxiedResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) doGet(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// The shared request outlives any single caller; each caller still stops
	// waiting on its own ctx. The http.Client timeout bounds the request.
	flightCtx := context.WithoutCancel(ctx)
	raw, err, shared := c.flight.DoContext(ctx, fullURL, func() ([]byte, error) {
		var raw []byte
		err := c.breaker.Execute(func() error {
			var reqErr error
			raw, reqErr = c.executeRequest(flightCtx, endpoint, fullURL)
			return reqErr
		}, isTransientFailure)
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.observe(endpoint, "circuit_open", time.Now())
			c.logger.WarnContext(flightCtx, "livescores circuit breaker rejected request", "endpoint", endpoint, "state", c.breaker.State())
			return nil, fmt.Errorf("%w: live scores provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		return raw, err
	})
	if shared {
		c.logger.DebugContext(ctx, "joined in-flight upstream request", "endpoint", endpoint)
	}

	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, "transport_error", startedAt)
		err = fmt.Errorf("%w: send request: %v", errUpstreamTransient, err)
		c.logger.WarnContext(ctx, "livescores request failed", "url", redactURL(fullURL), "error", err)
		return nil, err
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		c.observe(endpoint, "transport_error", startedAt)
		return nil, fmt.Errorf("%w: read response body: %v", errUpstreamTransient, readErr)
	}
	c.observe(endpoint, outcomeForStatus(resp.StatusCode), startedAt)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	if isTransientStatus(resp.StatusCode) {
		err = fmt.Errorf("%w: provider status=%d body=%s", errUpstreamTransient, resp.StatusCode, abbreviateBody(raw))
	} else {
		err = fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
	c.logger.WarnContext(ctx, "livescores request failed", "url", redactURL(fullURL), "error", err)
	return nil, err
}

func (c *Client) observe(endpoint, outcome string, startedAt time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstreamRequest(endpoint, outcome, time.Since(startedAt))
}

// decodeRecords decodes a JSON array item by item. Items that fail to decode
// or carry no fixture id are skipped and counted.
func decodeRecords(raw []byte) ([]match.Record, int, error) {
	out := make([]match.Record, 0)
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return out, 0, nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return out, 0, crerr.Newf("expected json array, got %s", abbreviateBody(raw))
	}

	var items []json.RawMessage
	if err := sonic.Unmarshal(raw, &items); err != nil {
		return out, 0, crerr.Wrap(err, "decode array")
	}

	skipped := 0
	for _, item := range items {
		var record match.Record
		if err := sonic.Unmarshal(item, &record); err != nil || record.FixtureID <= 0 {
			skipped++
			continue
		}
		out = append(out, record.Normalize())
	}

	return out, skipped, nil
}

func isTransientFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errUpstreamTransient)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func outcomeForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.User = nil
	return parsed.String()
}

const maxBodyExcerpt = 240

// abbreviateBody never cuts inside a multi-byte rune.
func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxBodyExcerpt {
		return text
	}
	cut := maxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

type bulletinEnvelope struct {
	Range match.DateRange `json:"range"`
	Count int             `json:"count"`
	Items json.RawMessage `json:"items"`
	Diag  []string        `json:"diag"`
}

type featuredEnvelope struct {
	Live     json.RawMessage `json:"live"`
	Upcoming json.RawMessage `json:"upcoming"`
}
