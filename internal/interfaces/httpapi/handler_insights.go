package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/usecase"
)

// GenerateInsights streams insights as server-sent events unless the request
// asks for ?stream=false, in which case the stored generation is returned.
func (h *Handler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateInsights")
	defer span.End()

	sportID := r.PathValue("sport")
	streaming, err := parseStreamFlag(r.URL.Query().Get("stream"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req generateInsightsRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	span.SetAttributes(insightAttributes(sportID, streaming, len(req.SelectedPlayers))...)

	if !streaming {
		h.generateUnary(ctx, w, sportID, req.toQuery())
		return
	}
	h.generateStream(ctx, w, sportID, req.toQuery())
}

func (h *Handler) generateStream(ctx context.Context, w http.ResponseWriter, sportID string, query sport.Query) {
	opened := func() func() { return func() {} }
	if h.streams != nil {
		opened = h.streams.StreamOpened
	}

	sink := newSSEWriter(w, h.heartbeat, opened)
	g, err := h.insights.Stream(ctx, sportID, query, sink)
	closeErr := sink.Close()

	if err != nil {
		if !sink.Started() {
			h.logger.WarnContext(ctx, "insight stream rejected", "sport", sportID, "error", err)
			writeError(ctx, w, err)
			return
		}
		h.logger.WarnContext(ctx, "insight stream ended with error", "sport", sportID, "generation_id", g.ID, "error", err)
		return
	}
	if closeErr != nil {
		h.logger.DebugContext(ctx, "insight stream not closed cleanly", "generation_id", g.ID, "error", closeErr)
	}
}

func (h *Handler) generateUnary(ctx context.Context, w http.ResponseWriter, sportID string, query sport.Query) {
	g, err := h.insights.Generate(ctx, sportID, query)
	if err != nil {
		if errors.Is(err, usecase.ErrParseFailed) {
			h.logger.WarnContext(ctx, "insight reply could not be parsed", "sport", sportID, "generation_id", g.ID)
			writeErrorData(ctx, w, err, generationToDTO(g))
			return
		}
		h.logger.WarnContext(ctx, "generate insights failed", "sport", sportID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, generationToDTO(g))
}

func parseStreamFlag(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: stream must be a boolean", usecase.ErrInvalidInput)
	}
	return v, nil
}
