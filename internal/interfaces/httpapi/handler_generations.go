package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/sports-insights/internal/usecase"
)

func (h *Handler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGenerations")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
			return
		}
		limit = v
	}

	items, err := h.generations.List(ctx, r.URL.Query().Get("sport"), limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list generations failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]generationSummaryDTO, 0, len(items))
	for _, g := range items {
		out = append(out, generationToSummaryDTO(g))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGeneration")
	defer span.End()

	generationID := r.PathValue("generationID")
	g, err := h.generations.Get(ctx, generationID)
	if err != nil {
		h.logger.WarnContext(ctx, "get generation failed", "generation_id", generationID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, generationToDTO(g))
}

func (h *Handler) SaveGenerationEdits(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveGenerationEdits")
	defer span.End()

	var req saveEditsRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	generationID := r.PathValue("generationID")
	g, err := h.generations.SaveEdits(ctx, generationID, req.toEdits())
	if err != nil {
		h.logger.WarnContext(ctx, "save generation edits failed", "generation_id", generationID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, generationToDTO(g))
}

func (h *Handler) ClearGenerationEdits(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearGenerationEdits")
	defer span.End()

	generationID := r.PathValue("generationID")
	g, err := h.generations.ClearEdits(ctx, generationID)
	if err != nil {
		h.logger.WarnContext(ctx, "clear generation edits failed", "generation_id", generationID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, generationToDTO(g))
}

// GetGenerationView returns the generated payload with user edits applied.
func (h *Handler) GetGenerationView(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGenerationView")
	defer span.End()

	generationID := strings.TrimSpace(r.PathValue("generationID"))
	view, err := h.generations.View(ctx, generationID)
	if err != nil {
		h.logger.WarnContext(ctx, "get generation view failed", "generation_id", generationID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, generationViewDTO{
		ID:      generationID,
		Payload: view,
	})
}
