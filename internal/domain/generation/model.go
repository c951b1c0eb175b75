package generation

import (
	"time"

	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

// Status mirrors the decode state of a generation.
type Status string

const (
	StatusLoading        Status = "loading"
	StatusSuccess        Status = "success"
	StatusParseError     Status = "parse_error"
	StatusTransportError Status = "transport_error"
)

// Generation is one insight request and its outcome.
type Generation struct {
	ID          string
	Sport       sport.ID
	Query       sport.Query
	Status      Status
	Payload     *insight.Payload
	RawText     string
	RepairStage string
	UsedFinal   bool
	Error       string
	Edits       []insight.Edit
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outcome is the terminal update applied to a loading generation.
type Outcome struct {
	Status      Status
	Payload     *insight.Payload
	RawText     string
	RepairStage string
	UsedFinal   bool
	Error       string
}

// Complete copies the outcome onto g.
func (g *Generation) Complete(outcome Outcome, at time.Time) {
	g.Status = outcome.Status
	g.Payload = outcome.Payload
	g.RawText = outcome.RawText
	g.RepairStage = outcome.RepairStage
	g.UsedFinal = outcome.UsedFinal
	g.Error = outcome.Error
	g.UpdatedAt = at
}

func (g Generation) Done() bool {
	return g.Status != StatusLoading
}

// View returns the payload with user edits merged in.
func (g Generation) View() *insight.Payload {
	return insight.NewOverlay(g.Edits...).Apply(g.Payload)
}
