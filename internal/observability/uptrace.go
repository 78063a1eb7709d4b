package observability

import (
	"context"
	"strings"

	"github.com/riskibarqy/livescore-board/internal/config"
	"github.com/riskibarqy/livescore-board/internal/platform/logging"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
)

// InitUptrace exports traces to Uptrace. Metrics are served by Prometheus only.
func InitUptrace(cfg config.Config, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("uptrace")
	noop := func(context.Context) error { return nil }

	if !cfg.UptraceEnabled {
		logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return noop, nil
	}
	dsn := strings.TrimSpace(cfg.UptraceDSN)
	if dsn == "" {
		logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return noop, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(dsn),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(
			attribute.Bool("livescores.auto_refresh", cfg.LiveScoresAutoRefresh),
			attribute.String("livescores.refresh_interval", cfg.LiveScoresRefreshInterval.String()),
		),
		uptrace.WithMetricsEnabled(false),
	)
	logger.Info("uptrace enabled", "service_name", cfg.ServiceName, "environment", cfg.AppEnv)

	return func(ctx context.Context) error {
		// flushes spans still buffered from the last poll cycles
		return uptrace.Shutdown(ctx)
	}, nil
}
