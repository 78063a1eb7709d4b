package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/livescore-board/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                          string
	ServiceName                     string
	ServiceVersion                  string
	HTTPAddr                        string
	ReadTimeout                     time.Duration
	WriteTimeout                    time.Duration
	CORSAllowedOrigins              []string
	CacheEnabled                    bool
	CacheTTL                        time.Duration
	MetricsEnabled                  bool
	PprofEnabled                    bool
	PprofAddr                       string
	UptraceEnabled                  bool
	UptraceDSN                      string
	PyroscopeEnabled                bool
	PyroscopeServerAddress          string
	PyroscopeAppName                string
	PyroscopeAuthToken              string
	PyroscopeBasicAuthUser          string
	PyroscopeBasicAuthPassword      string
	PyroscopeUploadRate             time.Duration
	LiveScoresBaseURL               string
	LiveScoresTimeout               time.Duration
	LiveScoresRefreshInterval       time.Duration
	LiveScoresAutoRefresh           bool
	LiveScoresPauseWhenIdle         bool
	LiveScoresBulletinDaysBack      int
	LiveScoresBulletinDaysAhead     int
	LiveScoresCircuitEnabled        bool
	LiveScoresCircuitFailureCount   int
	LiveScoresCircuitOpenTimeout    time.Duration
	LiveScoresCircuitHalfOpenMaxReq int
	StreamWorkerPoolSize            int
	StreamWriteTimeout              time.Duration
	LogLevel                        logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheEnabled && cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0 when CACHE_ENABLED=true")
	}

	metricsEnabled, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	liveScoresTimeout, err := time.ParseDuration(getEnv("LIVESCORES_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_TIMEOUT: %w", err)
	}
	if liveScoresTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVESCORES_TIMEOUT must be > 0")
	}
	// Values below the scheduler floor are accepted and raised at runtime.
	refreshInterval, err := time.ParseDuration(getEnv("LIVESCORES_REFRESH_INTERVAL", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_REFRESH_INTERVAL: %w", err)
	}
	autoRefresh, err := strconv.ParseBool(getEnv("LIVESCORES_AUTO_REFRESH", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_AUTO_REFRESH: %w", err)
	}
	pauseWhenIdle, err := strconv.ParseBool(getEnv("LIVESCORES_PAUSE_WHEN_IDLE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_PAUSE_WHEN_IDLE: %w", err)
	}
	daysBack, err := getEnvAsInt("LIVESCORES_BULLETIN_DAYS_BACK", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_BULLETIN_DAYS_BACK: %w", err)
	}
	if daysBack < 0 {
		return Config{}, fmt.Errorf("LIVESCORES_BULLETIN_DAYS_BACK must be >= 0")
	}
	daysAhead, err := getEnvAsInt("LIVESCORES_BULLETIN_DAYS_AHEAD", 6)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_BULLETIN_DAYS_AHEAD: %w", err)
	}
	if daysAhead < 0 {
		return Config{}, fmt.Errorf("LIVESCORES_BULLETIN_DAYS_AHEAD must be >= 0")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("LIVESCORES_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("LIVESCORES_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailureCount < 1 {
		return Config{}, fmt.Errorf("LIVESCORES_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("LIVESCORES_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVESCORES_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	circuitHalfOpenMaxReq, err := getEnvAsInt("LIVESCORES_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse LIVESCORES_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("LIVESCORES_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	streamWorkerPoolSize, err := getEnvAsInt("STREAM_WORKER_POOL_SIZE", 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse STREAM_WORKER_POOL_SIZE: %w", err)
	}
	if streamWorkerPoolSize < 1 {
		return Config{}, fmt.Errorf("STREAM_WORKER_POOL_SIZE must be >= 1")
	}
	streamWriteTimeout, err := time.ParseDuration(getEnv("STREAM_WRITE_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STREAM_WRITE_TIMEOUT: %w", err)
	}
	if streamWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("STREAM_WRITE_TIMEOUT must be > 0")
	}

	serviceName := strings.TrimSpace(getEnv("APP_SERVICE_NAME", "livescore-board"))

	cfg := Config{
		AppEnv:                          appEnv,
		ServiceName:                     serviceName,
		ServiceVersion:                  strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		HTTPAddr:                        strings.TrimSpace(getEnv("APP_HTTP_ADDR", ":8080")),
		ReadTimeout:                     readTimeout,
		WriteTimeout:                    writeTimeout,
		CORSAllowedOrigins:              splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		CacheEnabled:                    cacheEnabled,
		CacheTTL:                        cacheTTL,
		MetricsEnabled:                  metricsEnabled,
		PprofEnabled:                    pprofEnabled,
		PprofAddr:                       pprofAddr,
		UptraceEnabled:                  uptraceEnabled,
		UptraceDSN:                      uptraceDSN,
		PyroscopeEnabled:                pyroscopeEnabled,
		PyroscopeServerAddress:          pyroscopeServerAddress,
		PyroscopeAppName:                strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", serviceName)),
		PyroscopeAuthToken:              strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:          strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:             pyroscopeUploadRate,
		LiveScoresBaseURL:               strings.TrimSpace(getEnv("LIVESCORES_API_BASE_URL", "")),
		LiveScoresTimeout:               liveScoresTimeout,
		LiveScoresRefreshInterval:       refreshInterval,
		LiveScoresAutoRefresh:           autoRefresh,
		LiveScoresPauseWhenIdle:         pauseWhenIdle,
		LiveScoresBulletinDaysBack:      daysBack,
		LiveScoresBulletinDaysAhead:     daysAhead,
		LiveScoresCircuitEnabled:        circuitEnabled,
		LiveScoresCircuitFailureCount:   circuitFailureCount,
		LiveScoresCircuitOpenTimeout:    circuitOpenTimeout,
		LiveScoresCircuitHalfOpenMaxReq: circuitHalfOpenMaxReq,
		StreamWorkerPoolSize:            streamWorkerPoolSize,
		StreamWriteTimeout:              streamWriteTimeout,
		LogLevel:                        parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
