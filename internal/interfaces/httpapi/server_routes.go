package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics == nil {
		return
	}

	mux.Handle("GET /metrics", metrics)
}

func registerLiveScoreRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/livescores", handler.GetBoard)
	mux.HandleFunc("POST /v1/livescores/refresh", handler.RefreshBoard)
	mux.HandleFunc("PUT /v1/livescores/auto-refresh", handler.SetAutoRefresh)
	mux.HandleFunc("GET /v1/livescores/featured", handler.GetFeatured)
	mux.HandleFunc("GET /v1/livescores/fixtures/{fixtureID}", handler.GetFixture)
}

func registerStreamRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/livescores/stream", handler.StreamBoard)
	mux.HandleFunc("GET /v1/livescores/countdown/stream", handler.StreamCountdown)
}

// registerProxyRoutes keeps the unversioned path the browser bulletin widget calls.
func registerProxyRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /livescores/bulletin", handler.ProxyBulletin)
}
