package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	generationmock "github.com/riskibarqy/sports-insights/internal/mocks/domain/generation"
	"github.com/stretchr/testify/mock"
)

func storedGeneration() generation.Generation {
	return generation.Generation{
		ID:     "gen-1",
		Sport:  sport.NBA,
		Status: generation.StatusSuccess,
		Payload: &insight.Payload{
			Players: map[string]insight.PlayerInsight{"LeBron James": {Insights: insight.Lines{"Elite playmaker"}}},
			Team1:   insight.TeamInsight{Strengths: insight.Lines{"Transition offense"}},
		},
	}
}

func TestGenerationService_Get_NotFound(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	repo.On("GetByID", mock.Anything, "missing").Return(generation.Generation{}, false, nil).Once()

	if _, err := svc.Get(context.Background(), " missing "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerationService_List_NormalizesFilter(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	repo.On("List", mock.Anything, generation.ListFilter{Sport: "ipl", Limit: defaultGenerationLimit}).
		Return([]generation.Generation{{ID: "gen-1"}}, nil).Once()
	repo.On("List", mock.Anything, generation.ListFilter{Limit: maxGenerationLimit}).
		Return(nil, nil).Once()

	items, err := svc.List(context.Background(), "IPL", 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("list = (%v, %v)", items, err)
	}
	if _, err := svc.List(context.Background(), "", 5000); err != nil {
		t.Fatalf("list with large limit: %v", err)
	}
	if _, err := svc.List(context.Background(), "curling", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown sport, got %v", err)
	}
	if _, err := svc.List(context.Background(), "", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative limit, got %v", err)
	}
}

func TestGenerationService_SaveEdits_MergesOverlay(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	existing := storedGeneration()
	existing.Edits = []insight.Edit{{EntityType: insight.EntityTeam1, Field: insight.FieldStrengths, Values: insight.Lines{"old"}}}
	repo.On("GetByID", mock.Anything, "gen-1").Return(existing, true, nil).Once()

	var saved generation.Generation
	repo.On("Update", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(generation.Generation)
	}).Return(nil).Once()

	_, err := svc.SaveEdits(context.Background(), "gen-1", []insight.Edit{
		{EntityType: insight.EntityTeam1, Field: insight.FieldStrengths, Values: insight.Lines{"Rim protection"}},
		{EntityType: insight.EntityPlayer, EntityName: " LeBron James ", Field: insight.FieldWeaknesses, Values: insight.Lines{"Free throws"}},
	})
	if err != nil {
		t.Fatalf("save edits: %v", err)
	}
	if len(saved.Edits) != 2 {
		t.Fatalf("expected 2 merged edits, got %+v", saved.Edits)
	}
	if saved.Edits[0].Values[0] != "Rim protection" || saved.Edits[1].EntityName != "LeBron James" {
		t.Fatalf("unexpected merged edits: %+v", saved.Edits)
	}
	if saved.Payload.Team1.Strengths[0] != "Transition offense" {
		t.Fatalf("payload must not be modified by edits: %+v", saved.Payload.Team1)
	}

	view := saved.View()
	if view.Team1.Strengths[0] != "Rim protection" || view.Players["LeBron James"].Weaknesses[0] != "Free throws" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestGenerationService_SaveEdits_RejectsInvalidEdits(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	cases := [][]insight.Edit{
		nil,
		{{EntityType: "coach", Field: insight.FieldInsights}},
		{{EntityType: insight.EntityVenue, Field: insight.FieldStrengths}},
		{{EntityType: insight.EntityPlayer, Field: insight.FieldInsights}},
	}
	for i, edits := range cases {
		if _, err := svc.SaveEdits(context.Background(), "gen-1", edits); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestGenerationService_SaveEdits_RequiresPayload(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	repo.On("GetByID", mock.Anything, "gen-1").
		Return(generation.Generation{ID: "gen-1", Status: generation.StatusParseError}, true, nil).Once()

	_, err := svc.SaveEdits(context.Background(), "gen-1", []insight.Edit{{EntityType: insight.EntityTeam2, Field: insight.FieldInsights, Values: insight.Lines{"x"}}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerationService_ClearEditsAndView(t *testing.T) {
	t.Parallel()

	repo := generationmock.NewRepository(t)
	svc := NewGenerationService(repo, sport.DefaultCatalog())

	edited := storedGeneration()
	edited.Edits = []insight.Edit{{EntityType: insight.EntityTeam1, Field: insight.FieldStrengths, Values: insight.Lines{"edited"}}}
	repo.On("GetByID", mock.Anything, "gen-1").Return(edited, true, nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(g generation.Generation) bool { return len(g.Edits) == 0 })).Return(nil).Once()

	cleared, err := svc.ClearEdits(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("clear edits: %v", err)
	}
	if len(cleared.Edits) != 0 {
		t.Fatalf("expected edits to be cleared")
	}

	repo.On("GetByID", mock.Anything, "gen-2").Return(generation.Generation{ID: "gen-2"}, true, nil).Once()
	if _, err := svc.View(context.Background(), "gen-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for payload-less view, got %v", err)
	}
}
