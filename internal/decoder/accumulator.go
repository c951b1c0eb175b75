package decoder

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
)

type streamEvent struct {
	Chunk *string         `json:"chunk"`
	Final json.RawMessage `json:"final"`
	Error json.RawMessage `json:"error"`
}

// Accumulator folds stream events into the text received so far and the last
// out-of-band final payload. The zero value is ready to use.
type Accumulator struct {
	text        strings.Builder
	final       json.RawMessage
	upstreamErr string
	skipped     int
}

// Add applies one data payload. Payloads that are not JSON objects are counted
// and otherwise ignored.
func (a *Accumulator) Add(data string) {
	var event streamEvent
	if err := sonic.UnmarshalString(data, &event); err != nil {
		a.skipped++
		return
	}
	if isPresent(event.Final) {
		a.final = append(a.final[:0], event.Final...)
	}
	if event.Chunk != nil {
		a.text.WriteString(*event.Chunk)
	}
	if isPresent(event.Error) {
		a.upstreamErr = errorMessage(event.Error)
	}
}

// AppendText appends a raw text fragment that did not arrive as an event.
func (a *Accumulator) AppendText(fragment string) {
	a.text.WriteString(fragment)
}

func (a *Accumulator) Text() string {
	return a.text.String()
}

// Final returns the last final payload seen, or nil.
func (a *Accumulator) Final() json.RawMessage {
	if len(a.final) == 0 {
		return nil
	}
	return a.final
}

func (a *Accumulator) UpstreamError() string {
	return a.upstreamErr
}

func (a *Accumulator) Skipped() int {
	return a.skipped
}

func isPresent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

func errorMessage(raw json.RawMessage) string {
	var message string
	if err := sonic.Unmarshal(raw, &message); err == nil {
		return message
	}
	var detail struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	return strings.TrimSpace(string(raw))
}
