package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/riskibarqy/sports-insights/internal/decoder"
	"github.com/riskibarqy/sports-insights/internal/domain/generation"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/riskibarqy/sports-insights/internal/platform/id"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const maxSelectedPlayers = 12

// GenerationRecorder receives the duration of every finished generation.
type GenerationRecorder interface {
	RecordGeneration(sport, status string, elapsed time.Duration)
}

type InsightServiceConfig struct {
	Catalog  sport.Catalog
	Files    FileRegistry
	Model    InsightModel
	Decoder  *decoder.Decoder
	Repo     generation.Repository
	IDs      id.Generator
	Recorder GenerationRecorder
	Logger   *logging.Logger
	Now      func() time.Time
}

// InsightService runs insight generations end to end: prompt, model call,
// local repair of the reply and persistence of the outcome.
type InsightService struct {
	catalog  sport.Catalog
	files    FileRegistry
	model    InsightModel
	decoder  *decoder.Decoder
	repo     generation.Repository
	ids      id.Generator
	recorder GenerationRecorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewInsightService(cfg InsightServiceConfig) *InsightService {
	s := &InsightService{
		catalog:  cfg.Catalog,
		files:    cfg.Files,
		model:    cfg.Model,
		decoder:  cfg.Decoder,
		repo:     cfg.Repo,
		ids:      cfg.IDs,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.decoder == nil {
		s.decoder = decoder.New()
	}
	if s.ids == nil {
		s.ids = id.NewUUIDGenerator()
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Stream generates insights and reports progress to sink as it arrives. Input
// errors are returned before sink is touched. Any later failure is sent to
// sink, persisted as transport_error and returned. A reply that cannot be
// repaired is persisted as parse_error, gets no final frame and is not an
// error.
func (s *InsightService) Stream(ctx context.Context, sportID string, q sport.Query, sink InsightSink) (generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.InsightService.Stream")
	defer span.End()

	started := s.now()
	sp, query, err := s.prepare(sportID, q)
	if err != nil {
		markSpan(span, err)
		return generation.Generation{}, err
	}
	g, err := s.begin(ctx, sp, query)
	if err != nil {
		return generation.Generation{}, err
	}
	span.SetAttributes(attribute.String("generation.id", g.ID), attribute.String("sport", string(sp.ID)))

	text, err := s.streamText(ctx, sp, query, sink)
	if err != nil {
		if sinkErr := sink.Error(clientMessage(err)); sinkErr != nil {
			s.logger.DebugContext(ctx, "insight error frame not delivered", "generation_id", g.ID, "error", sinkErr)
		}
		g = s.complete(ctx, g, generation.Outcome{
			Status:  generation.StatusTransportError,
			RawText: text,
			Error:   err.Error(),
		}, started)
		markSpan(span, err)
		return g, err
	}

	// An unparseable reply ends without a final frame. Error frames are
	// reserved for upstream failures so clients can tell the two apart.
	result := s.decoder.DecodeText(text, hintsFor(query))
	if result.State == decoder.StateSuccess {
		if err := sink.Final(result.Payload); err != nil {
			s.logger.DebugContext(ctx, "insight final frame not delivered", "generation_id", g.ID, "error", err)
		}
	}

	g = s.complete(ctx, g, outcomeOf(result), started)
	return g, nil
}

// Generate is the non-streaming form of Stream. A reply that cannot be
// repaired returns the persisted generation together with ErrParseFailed.
func (s *InsightService) Generate(ctx context.Context, sportID string, q sport.Query) (generation.Generation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.InsightService.Generate")
	defer span.End()

	started := s.now()
	sp, query, err := s.prepare(sportID, q)
	if err != nil {
		markSpan(span, err)
		return generation.Generation{}, err
	}
	g, err := s.begin(ctx, sp, query)
	if err != nil {
		return generation.Generation{}, err
	}

	text, err := s.generateText(ctx, sp, query)
	if err != nil {
		g = s.complete(ctx, g, generation.Outcome{Status: generation.StatusTransportError, Error: err.Error()}, started)
		markSpan(span, err)
		return g, err
	}

	result := s.decoder.DecodeText(text, hintsFor(query))
	g = s.complete(ctx, g, outcomeOf(result), started)
	if result.State != decoder.StateSuccess {
		err := fmt.Errorf("%w: generation=%s", ErrParseFailed, g.ID)
		markSpan(span, err)
		return g, err
	}
	return g, nil
}

func (s *InsightService) prepare(sportID string, q sport.Query) (sport.Sport, sport.Query, error) {
	sp, err := s.catalog.Lookup(sportID)
	if err != nil {
		return sport.Sport{}, sport.Query{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	query := sp.Resolve(q)
	if len(query.SelectedPlayers) > maxSelectedPlayers {
		return sport.Sport{}, sport.Query{}, fmt.Errorf("%w: at most %d players can be selected", ErrInvalidInput, maxSelectedPlayers)
	}
	if strings.TrimSpace(q.Team1) == "" && strings.TrimSpace(q.Team2) == "" && len(query.SelectedPlayers) == 0 {
		return sport.Sport{}, sport.Query{}, fmt.Errorf("%w: select at least one team or player", ErrInvalidInput)
	}
	return sp, query, nil
}

func (s *InsightService) begin(ctx context.Context, sp sport.Sport, query sport.Query) (generation.Generation, error) {
	genID, err := s.ids.NewID()
	if err != nil {
		return generation.Generation{}, fmt.Errorf("generate generation id: %w", err)
	}

	now := s.now().UTC()
	g := generation.Generation{
		ID:        genID,
		Sport:     sp.ID,
		Query:     query,
		Status:    generation.StatusLoading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return generation.Generation{}, fmt.Errorf("create generation: %w", err)
	}

	s.logger.InfoContext(ctx, "insight generation started", "generation_id", g.ID, "sport", string(sp.ID), "players", len(query.SelectedPlayers))
	return g, nil
}

// complete persists the outcome even when ctx was cancelled by the client.
func (s *InsightService) complete(ctx context.Context, g generation.Generation, outcome generation.Outcome, started time.Time) generation.Generation {
	g.Complete(outcome, s.now().UTC())

	if err := s.repo.Update(context.WithoutCancel(ctx), g); err != nil {
		s.logger.ErrorContext(ctx, "persist generation outcome failed", "generation_id", g.ID, "status", string(g.Status), "error", err)
	}
	elapsed := s.now().Sub(started)
	if s.recorder != nil {
		s.recorder.RecordGeneration(string(g.Sport), string(g.Status), elapsed)
	}

	s.logger.InfoContext(ctx, "insight generation finished",
		"generation_id", g.ID,
		"sport", string(g.Sport),
		"status", string(g.Status),
		"repair_stage", g.RepairStage,
		"raw_bytes", len(g.RawText),
		"duration", elapsed,
	)
	return g
}

// streamText relays model fragments to sink and returns everything received,
// including the partial text when the stream fails.
func (s *InsightService) streamText(ctx context.Context, sp sport.Sport, query sport.Query, sink InsightSink) (string, error) {
	prompt, files, err := s.request(ctx, sp, query)
	if err != nil {
		return "", err
	}

	stream, err := s.model.StreamGenerate(ctx, prompt, files)
	if err != nil {
		return "", dependencyError("open model stream", err)
	}
	defer stream.Close()

	var acc decoder.Accumulator
	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return acc.Text(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc.Text(), fmt.Errorf("insight stream abandoned: %w", ctxErr)
			}
			return acc.Text(), dependencyError("read model stream", err)
		}

		acc.AppendText(fragment)
		if err := sink.Chunk(fragment); err != nil {
			return acc.Text(), fmt.Errorf("deliver insight chunk: %w", err)
		}
	}
}

func (s *InsightService) generateText(ctx context.Context, sp sport.Sport, query sport.Query) (string, error) {
	prompt, files, err := s.request(ctx, sp, query)
	if err != nil {
		return "", err
	}

	text, err := s.model.Generate(ctx, prompt, files)
	if err != nil {
		return "", dependencyError("generate insights", err)
	}
	return text, nil
}

func (s *InsightService) request(ctx context.Context, sp sport.Sport, query sport.Query) (string, []RemoteFile, error) {
	files, err := s.files.Files(ctx, sp)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, fmt.Errorf("resolve %s data files: %w", sp.ID, err)
		}
		return "", nil, dependencyError("resolve "+string(sp.ID)+" data files", err)
	}

	prompt, err := sport.BuildPrompt(sp, query)
	if err != nil {
		return "", nil, fmt.Errorf("build prompt: %w", err)
	}
	return prompt, files, nil
}

func hintsFor(query sport.Query) decoder.Hints {
	return decoder.Hints{Team1: query.Team1, Team2: query.Team2}
}

func outcomeOf(result decoder.Result) generation.Outcome {
	outcome := generation.Outcome{
		Status:    generation.StatusParseError,
		Payload:   result.Payload,
		RawText:   result.RawText,
		UsedFinal: result.UsedFinal,
	}
	if result.Stage != decoder.StageNone {
		outcome.RepairStage = result.Stage.String()
	}
	switch result.State {
	case decoder.StateSuccess:
		outcome.Status = generation.StatusSuccess
	case decoder.StateTransportError:
		outcome.Status = generation.StatusTransportError
		outcome.Error = result.UpstreamError
	default:
		outcome.Error = "insight response could not be parsed"
	}
	return outcome
}

// dependencyError marks model and upload failures as ErrDependencyUnavailable
// unless they already carry a usecase sentinel or a context error.
func dependencyError(op string, err error) error {
	switch {
	case errors.Is(err, ErrDependencyUnavailable), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrDependencyUnavailable, op, err)
	}
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "the model did not answer in time"
	case errors.Is(err, ErrNotFound):
		return "sport data files are missing on the server"
	default:
		return err.Error()
	}
}
