package generation

import (
	"testing"
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/insight"
)

func TestGenerationCompleteAndView(t *testing.T) {
	t.Parallel()

	g := Generation{ID: "g1", Status: StatusLoading}
	if g.Done() {
		t.Fatalf("loading generation must not be done")
	}

	payload := &insight.Payload{Team1: insight.TeamInsight{Insights: insight.Lines{"generated"}}}
	at := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)
	g.Complete(Outcome{Status: StatusSuccess, Payload: payload, RepairStage: "as_is"}, at)
	if !g.Done() || g.UpdatedAt != at || g.RepairStage != "as_is" {
		t.Fatalf("unexpected completed generation %+v", g)
	}

	g.Edits = []insight.Edit{{EntityType: insight.EntityTeam1, Field: insight.FieldInsights, Values: insight.Lines{"edited"}}}
	view := g.View()
	if view.Team1.Insights[0] != "edited" || payload.Team1.Insights[0] != "generated" {
		t.Fatalf("view must apply edits without touching the payload")
	}
}
