package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/livescore-board/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_LiveScoresDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("LIVESCORES_API_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LiveScoresBaseURL != "" {
		t.Fatalf("expected empty base url, got %q", cfg.LiveScoresBaseURL)
	}
	if cfg.LiveScoresTimeout != 10*time.Second {
		t.Fatalf("unexpected LiveScoresTimeout: %s", cfg.LiveScoresTimeout)
	}
	if cfg.LiveScoresRefreshInterval != 15*time.Second {
		t.Fatalf("unexpected LiveScoresRefreshInterval: %s", cfg.LiveScoresRefreshInterval)
	}
	if !cfg.LiveScoresAutoRefresh {
		t.Fatalf("expected auto refresh on by default")
	}
	if cfg.LiveScoresBulletinDaysBack != 0 || cfg.LiveScoresBulletinDaysAhead != 6 {
		t.Fatalf("unexpected bulletin window: back=%d ahead=%d", cfg.LiveScoresBulletinDaysBack, cfg.LiveScoresBulletinDaysAhead)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected LogLevel: %v", cfg.LogLevel)
	}
}

func TestLoad_LiveScoresOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("LIVESCORES_API_BASE_URL", " https://scores.example.com ")
	t.Setenv("LIVESCORES_REFRESH_INTERVAL", "500ms")
	t.Setenv("LIVESCORES_AUTO_REFRESH", "false")
	t.Setenv("LIVESCORES_PAUSE_WHEN_IDLE", "true")
	t.Setenv("LIVESCORES_BULLETIN_DAYS_BACK", "1")
	t.Setenv("LIVESCORES_BULLETIN_DAYS_AHEAD", "3")
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LiveScoresBaseURL != "https://scores.example.com" {
		t.Fatalf("unexpected base url: %q", cfg.LiveScoresBaseURL)
	}
	if cfg.LiveScoresRefreshInterval != 500*time.Millisecond {
		t.Fatalf("expected raw interval to be kept, got %s", cfg.LiveScoresRefreshInterval)
	}
	if cfg.LiveScoresAutoRefresh || !cfg.LiveScoresPauseWhenIdle {
		t.Fatalf("unexpected toggles: auto=%v pause=%v", cfg.LiveScoresAutoRefresh, cfg.LiveScoresPauseWhenIdle)
	}
	if cfg.LiveScoresBulletinDaysBack != 1 || cfg.LiveScoresBulletinDaysAhead != 3 {
		t.Fatalf("unexpected bulletin window: back=%d ahead=%d", cfg.LiveScoresBulletinDaysBack, cfg.LiveScoresBulletinDaysAhead)
	}
	if cfg.LogLevel != logging.LevelWarn {
		t.Fatalf("unexpected LogLevel: %v", cfg.LogLevel)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "negative days back", key: "LIVESCORES_BULLETIN_DAYS_BACK", value: "-1"},
		{name: "bad timeout", key: "LIVESCORES_TIMEOUT", value: "soon"},
		{name: "zero worker pool", key: "STREAM_WORKER_POOL_SIZE", value: "0"},
		{name: "bad bool", key: "LIVESCORES_AUTO_REFRESH", value: "maybe"},
		{name: "zero circuit threshold", key: "LIVESCORES_CIRCUIT_FAILURE_COUNT", value: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv("UPTRACE_ENABLED", "false")
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
