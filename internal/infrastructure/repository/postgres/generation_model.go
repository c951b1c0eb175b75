package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

const generationTable = "generations"

var generationColumns = mustColumns(generationTableModel{})

type generationTableModel struct {
	ID           string         `db:"id"`
	Sport        string         `db:"sport"`
	Query        string         `db:"query"`
	Status       string         `db:"status"`
	Payload      sql.NullString `db:"payload"`
	RawText      string         `db:"raw_text"`
	RepairStage  string         `db:"repair_stage"`
	UsedFinal    bool           `db:"used_final"`
	ErrorMessage string         `db:"error_message"`
	Edits        string         `db:"edits"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type queryDocument struct {
	SelectedPlayers []string `json:"selected_players"`
	Team1           string   `json:"team1"`
	Team2           string   `json:"team2"`
	Venue           string   `json:"venue,omitempty"`
}

func toGenerationModel(g generation.Generation) (generationTableModel, error) {
	query, err := sonic.MarshalString(queryDocument{
		SelectedPlayers: g.Query.SelectedPlayers,
		Team1:           g.Query.Team1,
		Team2:           g.Query.Team2,
		Venue:           g.Query.Venue,
	})
	if err != nil {
		return generationTableModel{}, fmt.Errorf("encode generation query: %w", err)
	}

	edits := g.Edits
	if edits == nil {
		edits = []insight.Edit{}
	}
	encodedEdits, err := sonic.MarshalString(edits)
	if err != nil {
		return generationTableModel{}, fmt.Errorf("encode generation edits: %w", err)
	}

	model := generationTableModel{
		ID:           g.ID,
		Sport:        string(g.Sport),
		Query:        query,
		Status:       string(g.Status),
		RawText:      g.RawText,
		RepairStage:  g.RepairStage,
		UsedFinal:    g.UsedFinal,
		ErrorMessage: g.Error,
		Edits:        encodedEdits,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	if g.Payload != nil {
		payload, err := sonic.MarshalString(g.Payload)
		if err != nil {
			return generationTableModel{}, fmt.Errorf("encode generation payload: %w", err)
		}
		model.Payload = sql.NullString{String: payload, Valid: true}
	}
	return model, nil
}

func (m generationTableModel) toDomain() (generation.Generation, error) {
	var query queryDocument
	if err := sonic.UnmarshalString(m.Query, &query); err != nil {
		return generation.Generation{}, fmt.Errorf("decode generation %s query: %w", m.ID, err)
	}

	g := generation.Generation{
		ID:    m.ID,
		Sport: sport.ID(m.Sport),
		Query: sport.Query{
			SelectedPlayers: query.SelectedPlayers,
			Team1:           query.Team1,
			Team2:           query.Team2,
			Venue:           query.Venue,
		},
		Status:      generation.Status(m.Status),
		RawText:     m.RawText,
		RepairStage: m.RepairStage,
		UsedFinal:   m.UsedFinal,
		Error:       m.ErrorMessage,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Payload.Valid {
		var payload insight.Payload
		if err := sonic.UnmarshalString(m.Payload.String, &payload); err != nil {
			return generation.Generation{}, fmt.Errorf("decode generation %s payload: %w", m.ID, err)
		}
		g.Payload = &payload
	}
	if m.Edits != "" {
		if err := sonic.UnmarshalString(m.Edits, &g.Edits); err != nil {
			return generation.Generation{}, fmt.Errorf("decode generation %s edits: %w", m.ID, err)
		}
		if len(g.Edits) == 0 {
			g.Edits = nil
		}
	}
	return g, nil
}
