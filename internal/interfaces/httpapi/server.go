package httpapi

import (
	"net/http"

	"github.com/riskibarqy/livescore-board/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	CORSAllowedOrigins []string
	// Metrics and MetricsHandler are optional; /metrics is served only with a handler.
	Metrics        HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.MetricsHandler)
	registerLiveScoreRoutes(mux, handler)
	registerStreamRoutes(mux, handler)
	registerProxyRoutes(mux, handler)

	return RequestTracing(RequestLogging(logger, RequestMetrics(cfg.Metrics, mux, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
