package decoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

// State is the outcome of decoding one generation.
type State string

const (
	StateLoading        State = "loading"
	StateSuccess        State = "success"
	StateParseError     State = "parse_error"
	StateTransportError State = "transport_error"
)

// Observer receives decode outcomes, typically to record metrics.
type Observer interface {
	ObserveRepair(stage Stage, ok bool)
	ObserveDecode(state State, usedFinal bool)
}

// Result is the decoded form of one generation. RawText always holds the text
// accumulated from the stream so failures can be inspected.
type Result struct {
	State         State
	Payload       *insight.Payload
	RawText       string
	Stage         Stage
	UsedFinal     bool
	UpstreamError string
	SkippedEvents int
}

type Option func(*Decoder)

func WithCascade(cascade Cascade) Option {
	return func(d *Decoder) {
		if len(cascade) > 0 {
			d.cascade = cascade
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(d *Decoder) {
		d.observer = observer
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Decoder turns an insight event stream into a payload. It holds no
// per-stream state and may be shared across goroutines.
type Decoder struct {
	cascade  Cascade
	observer Observer
	logger   *logging.Logger
}

func New(opts ...Option) *Decoder {
	d := &Decoder{
		cascade: DefaultCascade(),
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode consumes body until the end sentinel or EOF and decodes what it
// received. The body is closed on every return path, including cancellation
// of ctx. A non-nil error is always accompanied by a transport_error result.
func (d *Decoder) Decode(ctx context.Context, body io.ReadCloser, hints Hints) (Result, error) {
	reader := NewReader(body)
	defer reader.Close()
	reader.Watch(ctx)

	var acc Accumulator
	for {
		data, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: stream abandoned: %w", ErrTransport, ctxErr)
			}
			result := Result{
				State:         StateTransportError,
				RawText:       acc.Text(),
				SkippedEvents: acc.Skipped(),
			}
			d.observeDecode(result)
			d.logger.WarnContext(ctx, "insight stream read failed", "error", err, "received_bytes", len(result.RawText))
			return result, err
		}
		acc.Add(data)
	}

	result := d.Finish(&acc, hints)
	if result.State == StateTransportError {
		return result, fmt.Errorf("%w: %s", ErrUpstream, result.UpstreamError)
	}
	return result, nil
}

// Finish decodes a completed accumulator, preferring a useful final payload.
func (d *Decoder) Finish(acc *Accumulator, hints Hints) Result {
	var final *insight.Payload
	if raw := acc.Final(); raw != nil {
		final = d.decodeFinal(raw, hints)
	}

	var result Result
	if final.Useful() {
		result = Result{State: StateSuccess, Payload: final, RawText: acc.Text(), UsedFinal: true}
	} else {
		result = d.decodeText(acc.Text(), hints)
		result.Payload = PreferFinal(final, result.Payload)
	}
	result.SkippedEvents = acc.Skipped()

	// A useful final outranks a late upstream error; the message is kept.
	if msg := acc.UpstreamError(); msg != "" {
		result.UpstreamError = msg
		if !result.UsedFinal {
			result.State = StateTransportError
		}
	}
	d.observeDecode(result)
	return result
}

// DecodeText normalizes, repairs and adapts a complete model reply.
func (d *Decoder) DecodeText(text string, hints Hints) Result {
	result := d.decodeText(text, hints)
	d.observeDecode(result)
	return result
}

func (d *Decoder) decodeText(text string, hints Hints) Result {
	result := Result{State: StateParseError, RawText: text}

	repaired, ok := d.cascade.Repair(Normalize(text))
	if d.observer != nil {
		d.observer.ObserveRepair(repaired.Stage, ok)
	}
	if !ok {
		d.logger.Debug("insight repair exhausted", "text_bytes", len(text))
		return result
	}

	doc, err := parseDocument(repaired.Text)
	if err != nil {
		d.logger.Debug("repaired insight unreadable", "stage", repaired.Stage.String(), "error", err)
		return result
	}

	result.Stage = repaired.Stage
	result.Payload = toPayload(adaptShape(doc, hints))
	if result.Payload.Useful() {
		result.State = StateSuccess
	}
	return result
}

func (d *Decoder) decodeFinal(raw json.RawMessage, hints Hints) *insight.Payload {
	doc, err := parseDocument(string(raw))
	if err != nil {
		d.logger.Debug("final payload unreadable", "error", err)
		return nil
	}
	return toPayload(adaptShape(doc, hints))
}

func (d *Decoder) observeDecode(result Result) {
	if d.observer != nil {
		d.observer.ObserveDecode(result.State, result.UsedFinal)
	}
}
