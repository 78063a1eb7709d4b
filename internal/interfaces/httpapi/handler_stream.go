package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/livescore-board/internal/domain/match"
	"github.com/riskibarqy/livescore-board/internal/platform/countdown"
	"github.com/riskibarqy/livescore-board/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

const maxViewerMessageBytes = 4 << 10

// StreamBoard pushes the board on connect and after every committed cycle.
// Viewers may send {"type":"refresh"} or {"type":"visibility","visible":bool}.
func (h *Handler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamBoard")
	defer span.End()

	if h.hub == nil {
		writeError(ctx, w, fmt.Errorf("%w: board stream is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	viewerID, err := h.ids.NewID()
	if err != nil {
		h.logger.ErrorContext(ctx, "generate viewer id failed", "error", err)
		writeInternalError(ctx, w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "board stream upgrade failed", "error", err)
		return
	}
	// Hijacked connections keep the server read deadline.
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(maxViewerMessageBytes)
	ctx = withViewerID(ctx, viewerID)
	span.SetAttributes(attribute.String("stream.viewer_id", viewerID))

	h.hub.Register(viewerID, conn)
	visible := true
	viewers := h.service.ViewerJoined(ctx)
	defer func() {
		if visible {
			h.service.ViewerLeft(ctx)
		}
		h.hub.Unregister(viewerID)
		h.logger.InfoContext(ctx, "board viewer disconnected", "viewer_id", viewerID)
	}()

	h.logger.InfoContext(ctx, "board viewer connected",
		"viewer_id", viewerID,
		"client_ip", resolveClientIP(r),
		"viewers", viewers,
	)
	if err := h.hub.SendBoard(ctx, viewerID, h.service.Board(ctx)); err != nil {
		h.logger.WarnContext(ctx, "initial board write failed", "viewer_id", viewerID, "error", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.DebugContext(ctx, "board viewer read failed", "viewer_id", viewerID, "error", err)
			}
			return
		}
		visible = h.handleViewerMessage(ctx, data, visible)
	}
}

func (h *Handler) handleViewerMessage(ctx context.Context, data []byte, visible bool) bool {
	viewerID, _ := viewerIDFromContext(ctx)

	var msg viewerMessage
	if err := jsoniter.Unmarshal(data, &msg); err != nil {
		_ = h.hub.SendError(viewerID, "invalid message")
		return visible
	}

	switch msg.Type {
	case viewerMessageRefresh:
		if _, err := h.service.Refresh(ctx); err != nil {
			_ = h.hub.SendError(viewerID, err.Error())
		}
	case viewerMessageVisibility:
		if msg.Visible == nil {
			_ = h.hub.SendError(viewerID, "visibility message requires visible")
			return visible
		}
		if *msg.Visible == visible {
			return visible
		}
		if *msg.Visible {
			h.service.ViewerJoined(ctx)
		} else {
			h.service.ViewerLeft(ctx)
		}
		return *msg.Visible
	default:
		_ = h.hub.SendError(viewerID, fmt.Sprintf("unknown message type %q", msg.Type))
	}
	return visible
}

// StreamCountdown sends one reading per second until the target is reached,
// then closes the connection normally.
func (h *Handler) StreamCountdown(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamCountdown")
	defer span.End()

	target, ok := match.ParseKickoff(r.URL.Query().Get("target"))
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: target must be an ISO-8601 timestamp", usecase.ErrInvalidInput))
		return
	}
	span.SetAttributes(attribute.String("countdown.target", target.UTC().Format(time.RFC3339)))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "countdown stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(maxViewerMessageBytes)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	clock := countdown.NewClock(target, countdown.WithNow(h.now), countdown.WithTicker(h.newTicker))
	clock.Run(ctx, func(reading countdown.Reading) {
		payload, err := sonic.Marshal(streamMessage{Type: streamTypeCountdown, Data: reading})
		if err != nil {
			cancel()
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			cancel()
		}
	})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, countdown.StartedLabel),
		time.Now().Add(time.Second))
}
