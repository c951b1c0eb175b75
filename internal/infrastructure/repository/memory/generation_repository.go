package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
)

const defaultListLimit = 50

// GenerationRepository keeps generations in process memory. Values are
// cloned on the way in and out so callers never share payload maps.
type GenerationRepository struct {
	mu    sync.RWMutex
	items map[string]generation.Generation
}

func NewGenerationRepository() *GenerationRepository {
	return &GenerationRepository{items: make(map[string]generation.Generation)}
}

func (r *GenerationRepository) Create(_ context.Context, g generation.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[g.ID]; exists {
		return fmt.Errorf("create generation %s: already exists", g.ID)
	}
	r.items[g.ID] = cloneGeneration(g)
	return nil
}

func (r *GenerationRepository) Update(_ context.Context, g generation.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[g.ID]; !exists {
		return fmt.Errorf("update generation %s: not found", g.ID)
	}
	r.items[g.ID] = cloneGeneration(g)
	return nil
}

func (r *GenerationRepository) GetByID(_ context.Context, id string) (generation.Generation, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.items[id]
	if !ok {
		return generation.Generation{}, false, nil
	}
	return cloneGeneration(g), true, nil
}

// List returns generations newest first.
func (r *GenerationRepository) List(_ context.Context, filter generation.ListFilter) ([]generation.Generation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	sportFilter := strings.ToLower(strings.TrimSpace(filter.Sport))

	r.mu.RLock()
	out := make([]generation.Generation, 0, len(r.items))
	for _, g := range r.items {
		if sportFilter != "" && string(g.Sport) != sportFilter {
			continue
		}
		out = append(out, g)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = cloneGeneration(out[i])
	}
	return out, nil
}

func cloneGeneration(g generation.Generation) generation.Generation {
	g.Payload = g.Payload.Clone()
	g.Query.SelectedPlayers = append([]string(nil), g.Query.SelectedPlayers...)
	if g.Edits != nil {
		edits := make([]insight.Edit, len(g.Edits))
		for i, e := range g.Edits {
			e.Values = e.Values.Clone()
			edits[i] = e
		}
		g.Edits = edits
	}
	return g
}
