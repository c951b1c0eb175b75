package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/platform/querybuilder"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type GenerationRepository struct {
	db *sqlx.DB
}

func NewGenerationRepository(db *sqlx.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, g generation.Generation) error {
	model, err := toGenerationModel(g)
	if err != nil {
		return err
	}

	query, args, err := querybuilder.InsertModel(generationTable, model)
	if err != nil {
		return fmt.Errorf("build create generation query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create generation: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns. The sport, query and creation time
// are fixed when the generation starts.
func (r *GenerationRepository) Update(ctx context.Context, g generation.Generation) error {
	model, err := toGenerationModel(g)
	if err != nil {
		return err
	}

	query, args, err := querybuilder.UpdateModel(generationTable, model, "id", "sport", "query", "created_at")
	if err != nil {
		return fmt.Errorf("build update generation query: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update generation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update generation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update generation %s: not found", g.ID)
	}
	return nil
}

func (r *GenerationRepository) GetByID(ctx context.Context, id string) (generation.Generation, bool, error) {
	query, args, err := querybuilder.Select(generationColumns...).
		From(generationTable).
		Where(querybuilder.Eq("id", id)).
		ToSQL()
	if err != nil {
		return generation.Generation{}, false, fmt.Errorf("build get generation query: %w", err)
	}

	var row generationTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return generation.Generation{}, false, nil
		}
		return generation.Generation{}, false, fmt.Errorf("get generation by id: %w", err)
	}

	g, err := row.toDomain()
	if err != nil {
		return generation.Generation{}, false, err
	}
	return g, true, nil
}

func (r *GenerationRepository) List(ctx context.Context, filter generation.ListFilter) ([]generation.Generation, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build list generations query: %w", err)
	}

	var rows []generationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	out := make([]generation.Generation, 0, len(rows))
	for _, row := range rows {
		g, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func buildListQuery(filter generation.ListFilter) (string, []any, error) {
	var sportFilter querybuilder.Condition
	if s := strings.ToLower(strings.TrimSpace(filter.Sport)); s != "" {
		sportFilter = querybuilder.Eq("sport", s)
	}

	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	return querybuilder.Select(generationColumns...).
		From(generationTable).
		Where(sportFilter).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
}
