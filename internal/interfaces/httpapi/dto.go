package httpapi

import (
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

type generateInsightsRequest struct {
	SelectedPlayers []string `json:"selected_players" validate:"max=12,dive,max=120"`
	Team1           string   `json:"team1" validate:"max=120"`
	Team2           string   `json:"team2" validate:"max=120"`
	Venue           string   `json:"venue" validate:"max=160"`
}

func (r generateInsightsRequest) toQuery() sport.Query {
	return sport.Query{
		SelectedPlayers: r.SelectedPlayers,
		Team1:           r.Team1,
		Team2:           r.Team2,
		Venue:           r.Venue,
	}
}

type saveEditsRequest struct {
	Edits []editDTO `json:"edits" validate:"required,min=1,max=100,dive"`
}

type editDTO struct {
	EntityType string        `json:"entity_type" validate:"required,oneof=player team1 team2 venue"`
	EntityName string        `json:"entity_name,omitempty" validate:"max=120"`
	Field      string        `json:"field" validate:"required,oneof=insights strengths weaknesses characteristics"`
	Values     insight.Lines `json:"values" validate:"max=50,dive,max=2000"`
}

func (r saveEditsRequest) toEdits() []insight.Edit {
	out := make([]insight.Edit, 0, len(r.Edits))
	for _, e := range r.Edits {
		out = append(out, insight.Edit{
			EntityType: insight.EntityType(e.EntityType),
			EntityName: e.EntityName,
			Field:      insight.Field(e.Field),
			Values:     e.Values,
		})
	}
	return out
}

type sportDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	HasPlayers     bool     `json:"hasPlayers"`
	HasVenue       bool     `json:"hasVenue"`
	DefaultTeam1   string   `json:"defaultTeam1,omitempty"`
	DefaultTeam2   string   `json:"defaultTeam2,omitempty"`
	DefaultPlayers []string `json:"defaultPlayers"`
	DefaultVenue   string   `json:"defaultVenue,omitempty"`
	DataFiles      []string `json:"dataFiles"`
}

type queryDTO struct {
	SelectedPlayers []string `json:"selectedPlayers"`
	Team1           string   `json:"team1"`
	Team2           string   `json:"team2"`
	Venue           string   `json:"venue,omitempty"`
}

type generationDTO struct {
	ID          string           `json:"id"`
	Sport       string           `json:"sport"`
	Query       queryDTO         `json:"query"`
	Status      string           `json:"status"`
	Payload     *insight.Payload `json:"payload,omitempty"`
	RawText     string           `json:"rawText,omitempty"`
	RepairStage string           `json:"repairStage,omitempty"`
	UsedFinal   bool             `json:"usedFinal"`
	Error       string           `json:"error,omitempty"`
	Edits       []editDTO        `json:"edits"`
	CreatedAt   string           `json:"createdAt"`
	UpdatedAt   string           `json:"updatedAt"`
}

type generationSummaryDTO struct {
	ID          string   `json:"id"`
	Sport       string   `json:"sport"`
	Query       queryDTO `json:"query"`
	Status      string   `json:"status"`
	RepairStage string   `json:"repairStage,omitempty"`
	EditCount   int      `json:"editCount"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type generationViewDTO struct {
	ID      string           `json:"id"`
	Payload *insight.Payload `json:"payload"`
}

func sportToDTO(s sport.Sport) sportDTO {
	files := make([]string, 0, len(s.DataFiles))
	for _, df := range s.DataFiles {
		files = append(files, df.Path)
	}
	players := append([]string{}, s.DefaultPlayers...)
	return sportDTO{
		ID:             string(s.ID),
		Name:           s.Name,
		HasPlayers:     s.HasPlayers,
		HasVenue:       s.HasVenue,
		DefaultTeam1:   s.DefaultTeam1,
		DefaultTeam2:   s.DefaultTeam2,
		DefaultPlayers: players,
		DefaultVenue:   s.DefaultVenue,
		DataFiles:      files,
	}
}

func queryToDTO(q sport.Query) queryDTO {
	return queryDTO{
		SelectedPlayers: append([]string{}, q.SelectedPlayers...),
		Team1:           q.Team1,
		Team2:           q.Team2,
		Venue:           q.Venue,
	}
}

func generationToDTO(g generation.Generation) generationDTO {
	edits := make([]editDTO, 0, len(g.Edits))
	for _, e := range g.Edits {
		edits = append(edits, editDTO{
			EntityType: string(e.EntityType),
			EntityName: e.EntityName,
			Field:      string(e.Field),
			Values:     e.Values.Clone(),
		})
	}
	return generationDTO{
		ID:          g.ID,
		Sport:       string(g.Sport),
		Query:       queryToDTO(g.Query),
		Status:      string(g.Status),
		Payload:     g.Payload,
		RawText:     g.RawText,
		RepairStage: g.RepairStage,
		UsedFinal:   g.UsedFinal,
		Error:       g.Error,
		Edits:       edits,
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	}
}

func generationToSummaryDTO(g generation.Generation) generationSummaryDTO {
	return generationSummaryDTO{
		ID:          g.ID,
		Sport:       string(g.Sport),
		Query:       queryToDTO(g.Query),
		Status:      string(g.Status),
		RepairStage: g.RepairStage,
		EditCount:   len(g.Edits),
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
