package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/riskibarqy/livescore-board/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultHubPoolSize     = 64
	defaultHubWriteTimeout = 5 * time.Second
)

// ViewerGauge is told how many board viewers are connected.
type ViewerGauge interface {
	SetStreamViewers(count int)
}

type BoardHubConfig struct {
	PoolSize     int
	WriteTimeout time.Duration
	Logger       *logging.Logger
	Viewers      ViewerGauge
	Now          func() time.Time
}

// BoardHub fans committed boards out to websocket viewers.
type BoardHub struct {
	pool         *ants.Pool
	writeTimeout time.Duration
	logger       *logging.Logger
	gauge        ViewerGauge
	now          func() time.Time

	mu      sync.RWMutex
	viewers map[string]*viewerConn
}

type viewerConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (v *viewerConn) write(payload []byte, timeout time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return v.conn.WriteMessage(websocket.TextMessage, payload)
}

func NewBoardHub(cfg BoardHubConfig) (*BoardHub, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultHubPoolSize
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultHubWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create stream worker pool: %w", err)
	}

	return &BoardHub{
		pool:         pool,
		writeTimeout: writeTimeout,
		logger:       logger.Named("stream"),
		gauge:        cfg.Viewers,
		now:          now,
		viewers:      make(map[string]*viewerConn),
	}, nil
}

func (h *BoardHub) Register(viewerID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.viewers[viewerID] = &viewerConn{id: viewerID, conn: conn}
	count := len(h.viewers)
	h.mu.Unlock()

	h.reportViewers(count)
}

// Unregister drops the viewer and closes its connection. Unknown ids are ignored.
func (h *BoardHub) Unregister(viewerID string) {
	h.mu.Lock()
	viewer, ok := h.viewers[viewerID]
	delete(h.viewers, viewerID)
	count := len(h.viewers)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = viewer.conn.Close()
	h.reportViewers(count)
}

func (h *BoardHub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// PublishBoard encodes the board once and writes it to every viewer in
// parallel. It returns when all writes finished or timed out.
func (h *BoardHub) PublishBoard(ctx context.Context, snapshot usecase.BoardSnapshot) {
	ctx, span := startSpan(ctx, "httpapi.BoardHub.PublishBoard")
	defer span.End()

	payload, err := h.encodeBoard(ctx, snapshot)
	if err != nil {
		h.logger.ErrorContext(ctx, "encode board failed", "error", err)
		markSpanError(span, err)
		return
	}

	h.mu.RLock()
	targets := make([]*viewerConn, 0, len(h.viewers))
	for _, viewer := range h.viewers {
		targets = append(targets, viewer)
	}
	h.mu.RUnlock()
	span.SetAttributes(attribute.Int("stream.viewers", len(targets)))

	var wg sync.WaitGroup
	for _, viewer := range targets {
		wg.Add(1)
		if err := h.pool.Submit(func() {
			defer wg.Done()
			h.deliver(ctx, viewer, payload)
		}); err != nil {
			wg.Done()
			h.logger.WarnContext(ctx, "submit board write failed", "viewer_id", viewer.id, "error", err)
		}
	}
	wg.Wait()
}

// SendBoard writes one board to a single viewer, e.g. right after connect.
func (h *BoardHub) SendBoard(ctx context.Context, viewerID string, snapshot usecase.BoardSnapshot) error {
	payload, err := h.encodeBoard(ctx, snapshot)
	if err != nil {
		return err
	}
	return h.send(viewerID, payload)
}

func (h *BoardHub) SendError(viewerID, message string) error {
	payload, err := sonic.Marshal(streamMessage{Type: streamTypeError, Data: streamErrorDTO{Message: message}})
	if err != nil {
		return err
	}
	return h.send(viewerID, payload)
}

func (h *BoardHub) send(viewerID string, payload []byte) error {
	h.mu.RLock()
	viewer, ok := h.viewers[viewerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("viewer %s is not connected", viewerID)
	}
	return viewer.write(payload, h.writeTimeout)
}

func (h *BoardHub) deliver(ctx context.Context, viewer *viewerConn, payload []byte) {
	if err := viewer.write(payload, h.writeTimeout); err != nil {
		h.logger.WarnContext(ctx, "board write failed, dropping viewer", "viewer_id", viewer.id, "error", err)
		h.Unregister(viewer.id)
	}
}

func (h *BoardHub) encodeBoard(ctx context.Context, snapshot usecase.BoardSnapshot) ([]byte, error) {
	return sonic.Marshal(streamMessage{Type: streamTypeBoard, Data: boardToDTO(ctx, snapshot, h.now())})
}

// Close disconnects every viewer and releases the worker pool.
func (h *BoardHub) Close() {
	h.mu.Lock()
	viewers := h.viewers
	h.viewers = make(map[string]*viewerConn)
	h.mu.Unlock()

	for _, viewer := range viewers {
		viewer.mu.Lock()
		_ = viewer.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		viewer.mu.Unlock()
		_ = viewer.conn.Close()
	}
	h.reportViewers(0)
	h.pool.Release()
}

func (h *BoardHub) reportViewers(count int) {
	if h.gauge != nil {
		h.gauge.SetStreamViewers(count)
	}
}
