package httpapi

import "context"

type contextKey string

const viewerContextKey contextKey = "stream_viewer_id"

func withViewerID(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewerID)
}

func viewerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(viewerContextKey).(string)
	return id, ok && id != ""
}
