package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

const (
	defaultGenerationLimit = 20
	maxGenerationLimit     = 200
	maxEditsPerRequest     = 100
)

// GenerationService reads stored generations and manages the user edit
// overlay. Edits never change the generated payload itself.
type GenerationService struct {
	repo    generation.Repository
	catalog sport.Catalog
	now     func() time.Time
}

func NewGenerationService(repo generation.Repository, catalog sport.Catalog) *GenerationService {
	return &GenerationService{repo: repo, catalog: catalog, now: time.Now}
}

func (s *GenerationService) Get(ctx context.Context, generationID string) (generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GenerationService.Get")
	defer span.End()

	generationID = strings.TrimSpace(generationID)
	if generationID == "" {
		return generation.Generation{}, fmt.Errorf("%w: generation id is required", ErrInvalidInput)
	}

	g, exists, err := s.repo.GetByID(ctx, generationID)
	if err != nil {
		return generation.Generation{}, fmt.Errorf("get generation: %w", err)
	}
	if !exists {
		return generation.Generation{}, fmt.Errorf("%w: generation=%s", ErrNotFound, generationID)
	}
	return g, nil
}

func (s *GenerationService) List(ctx context.Context, sportID string, limit int) ([]generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GenerationService.List")
	defer span.End()

	filter := generation.ListFilter{Limit: limit}
	if sportID = strings.TrimSpace(sportID); sportID != "" {
		sp, err := s.catalog.Lookup(sportID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Sport = string(sp.ID)
	}
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	case limit == 0:
		filter.Limit = defaultGenerationLimit
	case limit > maxGenerationLimit:
		filter.Limit = maxGenerationLimit
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return items, nil
}

// SaveEdits merges edits into the generation's overlay. An edit for a list
// that already has one replaces it.
func (s *GenerationService) SaveEdits(ctx context.Context, generationID string, edits []insight.Edit) (generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GenerationService.SaveEdits")
	defer span.End()

	if len(edits) == 0 {
		return generation.Generation{}, fmt.Errorf("%w: at least one edit is required", ErrInvalidInput)
	}
	if len(edits) > maxEditsPerRequest {
		return generation.Generation{}, fmt.Errorf("%w: at most %d edits per request", ErrInvalidInput, maxEditsPerRequest)
	}
	for i, edit := range edits {
		if err := edit.Validate(); err != nil {
			return generation.Generation{}, fmt.Errorf("%w: edit %d: %v", ErrInvalidInput, i, err)
		}
	}

	g, err := s.Get(ctx, generationID)
	if err != nil {
		return generation.Generation{}, err
	}
	if g.Payload == nil {
		return generation.Generation{}, fmt.Errorf("%w: generation %s has no payload to edit", ErrInvalidInput, g.ID)
	}

	overlay := insight.NewOverlay(g.Edits...)
	for _, edit := range edits {
		edit.EntityName = strings.TrimSpace(edit.EntityName)
		overlay.Set(edit)
	}
	g.Edits = overlay.Edits()
	g.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, g); err != nil {
		return generation.Generation{}, fmt.Errorf("save generation edits: %w", err)
	}
	return g, nil
}

func (s *GenerationService) ClearEdits(ctx context.Context, generationID string) (generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GenerationService.ClearEdits")
	defer span.End()

	g, err := s.Get(ctx, generationID)
	if err != nil {
		return generation.Generation{}, err
	}
	if len(g.Edits) == 0 {
		return g, nil
	}

	g.Edits = nil
	g.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, g); err != nil {
		return generation.Generation{}, fmt.Errorf("clear generation edits: %w", err)
	}
	return g, nil
}

// View returns the payload with the edit overlay applied to a copy.
func (s *GenerationService) View(ctx context.Context, generationID string) (*insight.Payload, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GenerationService.View")
	defer span.End()

	g, err := s.Get(ctx, generationID)
	if err != nil {
		return nil, err
	}
	view := g.View()
	if view == nil {
		return nil, fmt.Errorf("%w: generation %s has no payload", ErrNotFound, g.ID)
	}
	return view, nil
}
