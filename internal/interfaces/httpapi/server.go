package httpapi

import (
	"net/http"

	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

type RouterConfig struct {
	Logger             *logging.Logger
	CORSAllowedOrigins []string
	// Metrics serves GET /metrics when set.
	Metrics  http.Handler
	Recorder RequestRecorder
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.Metrics)
	registerInsightRoutes(mux, handler)
	registerGenerationRoutes(mux, handler)

	return RequestTracing(RequestLogging(logger, cfg.Recorder, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, captureRoute(mux)))))
}
