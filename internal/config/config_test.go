package config

import (
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_URL", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
	}
	if cfg.DBURL != "" {
		t.Fatalf("expected in-memory storage by default, got %q", cfg.DBURL)
	}
	if cfg.LogLevel != logging.LevelInfo || cfg.LogFormat != logging.FormatJSON {
		t.Fatalf("unexpected log settings: %s %s", cfg.LogLevel, cfg.LogFormat)
	}
	g := cfg.Gemini
	if g.Model != "gemini-2.5-flash" || g.Temperature != 0.7 || g.TopP != 0.95 || g.TopK != 40 || g.MaxOutputTokens != 8192 {
		t.Fatalf("unexpected generation defaults: %+v", g)
	}
	if g.FileTTL != 0 || g.Warmup || !g.CircuitEnabled || g.MaxRetries != 2 {
		t.Fatalf("unexpected gemini defaults: %+v", g)
	}
	if cfg.UploadWorkers != 4 || cfg.StreamHeartbeat != 15*time.Second {
		t.Fatalf("unexpected worker or heartbeat defaults: %d %s", cfg.UploadWorkers, cfg.StreamHeartbeat)
	}
}

func TestLoad_GeminiOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvStage)
	t.Setenv("GEMINI_API_KEY", " key-123 ")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:9999/")
	t.Setenv("GEMINI_TEMPERATURE", "0.2")
	t.Setenv("GEMINI_TOP_K", "10")
	t.Setenv("GEMINI_FILE_TTL", "47h")
	t.Setenv("GEMINI_WARMUP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	g := cfg.Gemini
	if g.APIKey != "key-123" || g.BaseURL != "http://localhost:9999" {
		t.Fatalf("unexpected gemini endpoint: %+v", g)
	}
	if g.Temperature != 0.2 || g.TopK != 10 || g.FileTTL != 47*time.Hour || !g.Warmup {
		t.Fatalf("unexpected gemini overrides: %+v", g)
	}
}

func TestLoad_ParseErrorsNameTheVariable(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "GEMINI_TEMPERATURE", value: "hot"},
		{key: "GEMINI_TEMPERATURE", value: "3"},
		{key: "GEMINI_TOP_P", value: "0"},
		{key: "GEMINI_MAX_RETRIES", value: "-1"},
		{key: "GEMINI_POLL_INTERVAL", value: "0s"},
		{key: "GEMINI_FILE_TTL", value: "-1h"},
		{key: "UPLOAD_WORKERS", value: "0"},
		{key: "LOG_LEVEL", value: "loud"},
		{key: "LOG_FORMAT", value: "xml"},
		{key: "PPROF_ENABLED", value: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("APP_ENV", EnvDev)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("error does not name %s: %v", tt.key, err)
			}
		})
	}
}

func TestLoad_ProdRequiresGeminiKey(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when GEMINI_API_KEY is missing in prod")
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
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `foo=bar, uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_SERVICE_NAME", "sports-insights-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "sports-insights-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,http://localhost:5173 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
		t.Fatalf("unexpected CORS origins: %+v", cfg.CORSAllowedOrigins)
	}
}
