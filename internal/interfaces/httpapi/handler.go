package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/id"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/platform/ticker"
	"github.com/riskibarqy/livescore-board/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

type HandlerConfig struct {
	Logger         *logging.Logger
	IDs            id.Generator
	AllowedOrigins []string
	// WriteTimeout bounds every websocket write of the countdown stream.
	WriteTimeout time.Duration
	Now          func() time.Time
	Ticker       ticker.Factory
}

type Handler struct {
	service      *usecase.LiveScoreService
	hub          *BoardHub
	ids          id.Generator
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	now          func() time.Time
	newTicker    ticker.Factory
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(service *usecase.LiveScoreService, hub *BoardHub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultHubWriteTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newTicker := cfg.Ticker
	if newTicker == nil {
		newTicker = ticker.NewReal
	}

	origins := newOriginPolicy(cfg.AllowedOrigins)
	return &Handler{
		service: service,
		hub:     hub,
		ids:     ids,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				return origin == "" || origins.allows(origin)
			},
		},
		writeTimeout: writeTimeout,
		now:          now,
		newTicker:    newTicker,
		logger:       logger.Named("httpapi"),
		validator:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetBoard")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, boardToDTO(ctx, h.service.Board(ctx), h.now()))
}

func (h *Handler) GetFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixture")
	defer span.End()

	fixtureID, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("fixtureID")), 10, 64)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: fixture id must be numeric", usecase.ErrInvalidInput))
		return
	}
	span.SetAttributes(attribute.Int64("fixture.id", fixtureID))

	item, err := h.service.Fixture(ctx, fixtureID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := matchesToDTO([]match.Record{item}, h.now())
	writeSuccess(ctx, w, http.StatusOK, items[0])
}

func (h *Handler) RefreshBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshBoard")
	defer span.End()

	snapshot, err := h.service.Refresh(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "manual refresh failed", "error", err)
		markSpanError(span, err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, boardToDTO(ctx, snapshot, h.now()))
}

func (h *Handler) SetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetAutoRefresh")
	defer span.End()

	var req autoRefreshRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	snapshot := h.service.SetAutoRefresh(ctx, *req.Enabled)
	writeSuccess(ctx, w, http.StatusOK, boardToDTO(ctx, snapshot, h.now()))
}

func (h *Handler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFeatured")
	defer span.End()

	query, err := parseFeaturedQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.service.Featured(ctx, query)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, featuredToDTO(result, h.now()))
}

// ProxyBulletin forwards the upstream response untouched, outside the envelope.
func (h *Handler) ProxyBulletin(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProxyBulletin")
	defer span.End()

	resp, err := h.service.ProxyBulletin(ctx, r.URL.RawQuery)
	if err != nil {
		h.logger.WarnContext(ctx, "bulletin proxy failed", "error", err)
		markSpanError(span, err)
		writeUpstreamError(ctx, w, err)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func parseFeaturedQuery(r *http.Request) (usecase.FeaturedQuery, error) {
	values := r.URL.Query()
	var query usecase.FeaturedQuery

	if raw := strings.TrimSpace(values.Get("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return query, fmt.Errorf("%w: days must be an integer", usecase.ErrInvalidInput)
		}
		query.Days = days
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput)
		}
		query.Limit = limit
	}
	for _, raw := range values["include_leagues"] {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				query.IncludeLeagues = append(query.IncludeLeagues, item)
			}
		}
	}

	return query, nil
}
