package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	CORSAllowedOrigins []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	StreamHeartbeat    time.Duration
	LogLevel           logging.Level
	LogFormat          logging.Format

	// DBURL selects the postgres repository. Generations are kept in memory
	// when it is empty.
	DBURL                   string
	DBDisablePreparedBinary bool

	DataDir       string
	UploadWorkers int

	Gemini GeminiConfig

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	PprofEnabled bool
	PprofAddr    string
}

type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	Timeout         time.Duration
	UploadTimeout   time.Duration
	PollInterval    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// FileTTL bounds how long uploaded handles are reused. Zero keeps them
	// until the process exits.
	FileTTL time.Duration
	Warmup  bool

	CircuitEnabled        bool
	CircuitFailureCount   int
	CircuitOpenTimeout    time.Duration
	CircuitHalfOpenMaxReq int
}

// Load reads the environment after applying an optional .env file. Variables
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                strings.TrimSpace(getEnv("APP_SERVICE_NAME", "sports-insights-api")),
		ServiceVersion:             strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev")),
		HTTPAddr:                   strings.TrimSpace(getEnv("HTTP_ADDR", ":3000")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080,http://localhost:5173")),
		LogFormat:                  logging.Format(strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", string(logging.FormatJSON))))),
		DBURL:                      strings.TrimSpace(os.Getenv("DB_URL")),
		DataDir:                    strings.TrimSpace(getEnv("DATA_DIR", "data")),
		UptraceDSN:                 strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	if cfg.LogLevel, err = logging.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	switch cfg.LogFormat {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: valid values are %s, %s", cfg.LogFormat, logging.FormatJSON, logging.FormatConsole)
	}

	if cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR cannot be empty")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.ReadTimeout, err = getEnvAsDuration("APP_READ_TIMEOUT", 10*time.Second, false); err != nil {
		return Config{}, err
	}
	// Event streams clear their own write deadline.
	if cfg.WriteTimeout, err = getEnvAsDuration("APP_WRITE_TIMEOUT", 30*time.Second, false); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second, false); err != nil {
		return Config{}, err
	}
	if cfg.StreamHeartbeat, err = getEnvAsDuration("STREAM_HEARTBEAT_INTERVAL", 15*time.Second, false); err != nil {
		return Config{}, err
	}

	if cfg.DBDisablePreparedBinary, err = getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", true); err != nil {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		return Config{}, fmt.Errorf("DATA_DIR cannot be empty")
	}
	if cfg.UploadWorkers, err = getEnvAsInt("UPLOAD_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.UploadWorkers < 1 {
		return Config{}, fmt.Errorf("UPLOAD_WORKERS must be >= 1")
	}

	if cfg.Gemini, err = loadGemini(); err != nil {
		return Config{}, err
	}
	if appEnv == EnvProd && cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is required when APP_ENV=%s", EnvProd)
	}

	if cfg.UptraceEnabled, err = getEnvAsBool("UPTRACE_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = getEnvAsBool("PYROSCOPE_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second, false); err != nil {
		return Config{}, err
	}

	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	return cfg, nil
}

func loadGemini() (GeminiConfig, error) {
	cfg := GeminiConfig{
		APIKey:  strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		BaseURL: strings.TrimRight(strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")), "/"),
		Model:   strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash")),
	}
	if cfg.BaseURL == "" || cfg.Model == "" {
		return GeminiConfig{}, fmt.Errorf("GEMINI_BASE_URL and GEMINI_MODEL cannot be empty")
	}

	var err error
	if cfg.Temperature, err = getEnvAsFloat("GEMINI_TEMPERATURE", 0.7); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_TEMPERATURE must be within [0, 2]")
	}
	if cfg.TopP, err = getEnvAsFloat("GEMINI_TOP_P", 0.95); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_TOP_P must be within (0, 1]")
	}
	if cfg.TopK, err = getEnvAsInt("GEMINI_TOP_K", 40); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.TopK < 1 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_TOP_K must be >= 1")
	}
	if cfg.MaxOutputTokens, err = getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 8192); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.MaxOutputTokens < 1 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be >= 1")
	}

	if cfg.Timeout, err = getEnvAsDuration("GEMINI_TIMEOUT", 2*time.Minute, false); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.UploadTimeout, err = getEnvAsDuration("GEMINI_UPLOAD_TIMEOUT", 5*time.Minute, false); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.PollInterval, err = getEnvAsDuration("GEMINI_POLL_INTERVAL", 2*time.Second, false); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.MaxRetries, err = getEnvAsInt("GEMINI_MAX_RETRIES", 2); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.MaxRetries < 0 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_MAX_RETRIES must be >= 0")
	}
	if cfg.RetryBackoff, err = getEnvAsDuration("GEMINI_RETRY_BACKOFF", time.Second, false); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.FileTTL, err = getEnvAsDuration("GEMINI_FILE_TTL", 0, true); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.Warmup, err = getEnvAsBool("GEMINI_WARMUP", false); err != nil {
		return GeminiConfig{}, err
	}

	if cfg.CircuitEnabled, err = getEnvAsBool("GEMINI_CIRCUIT_ENABLED", true); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.CircuitFailureCount, err = getEnvAsInt("GEMINI_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.CircuitFailureCount < 1 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	if cfg.CircuitOpenTimeout, err = getEnvAsDuration("GEMINI_CIRCUIT_OPEN_TIMEOUT", 30*time.Second, false); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.CircuitHalfOpenMaxReq, err = getEnvAsInt("GEMINI_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return GeminiConfig{}, err
	}
	if cfg.CircuitHalfOpenMaxReq < 1 {
		return GeminiConfig{}, fmt.Errorf("GEMINI_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	return cfg, nil
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
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

// getEnvAsDuration rejects negative values, and zero unless allowZero is set.
func getEnvAsDuration(key string, fallback time.Duration, allowZero bool) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out < 0 || (out == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be > 0", key)
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

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
