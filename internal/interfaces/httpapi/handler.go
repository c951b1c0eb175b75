package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/infrastructure/filestore"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"github.com/riskibarqy/sports-insights/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

// InsightGenerator runs insight generations.
type InsightGenerator interface {
	Stream(ctx context.Context, sportID string, q sport.Query, sink usecase.InsightSink) (generation.Generation, error)
	Generate(ctx context.Context, sportID string, q sport.Query) (generation.Generation, error)
}

// GenerationStore reads stored generations and manages their edits.
type GenerationStore interface {
	Get(ctx context.Context, generationID string) (generation.Generation, error)
	List(ctx context.Context, sportID string, limit int) ([]generation.Generation, error)
	SaveEdits(ctx context.Context, generationID string, edits []insight.Edit) (generation.Generation, error)
	ClearEdits(ctx context.Context, generationID string) (generation.Generation, error)
	View(ctx context.Context, generationID string) (*insight.Payload, error)
}

// DataFileInspector reports the on-disk state of each sport's data files.
type DataFileInspector interface {
	Status(sports []sport.Sport) []filestore.SportStatus
}

// StreamGauge tracks open event streams.
type StreamGauge interface {
	StreamOpened() func()
}

type HandlerConfig struct {
	Catalog     sport.Catalog
	Insights    InsightGenerator
	Generations GenerationStore
	DataFiles   DataFileInspector
	Streams     StreamGauge
	Heartbeat   time.Duration
	Logger      *logging.Logger
}

type Handler struct {
	catalog     sport.Catalog
	insights    InsightGenerator
	generations GenerationStore
	dataFiles   DataFileInspector
	streams     StreamGauge
	heartbeat   time.Duration
	logger      *logging.Logger
	validator   *validator.Validate
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	return &Handler{
		catalog:     cfg.Catalog,
		insights:    cfg.Insights,
		generations: cfg.Generations,
		dataFiles:   cfg.DataFiles,
		streams:     cfg.Streams,
		heartbeat:   heartbeat,
		logger:      logger,
		validator:   validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListSports(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSports")
	defer span.End()

	sports := h.catalog.List()
	items := make([]sportDTO, 0, len(sports))
	for _, s := range sports {
		items = append(items, sportToDTO(s))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

// ListDataFiles reports which configured data files exist under the data
// directory and whether each sport has been uploaded.
func (h *Handler) ListDataFiles(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDataFiles")
	defer span.End()

	if h.dataFiles == nil {
		writeError(ctx, w, fmt.Errorf("%w: data file registry is not configured", usecase.ErrDependencyUnavailable))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.dataFiles.Status(h.catalog.List()))
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeBody reads a JSON body into dst. A blank body leaves dst untouched
// when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if allowEmpty && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	decoder := sonic.ConfigDefault.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
