package decoder

import (
	"encoding/json"
	"errors"
	"strings"
)

// Stage identifies the repair attempt that produced a parseable document.
type Stage int

const (
	StageNone Stage = iota
	StageAsIs
	StageTrailingCommas
	StageErrorOffset
	StageBraceBalance
	StageContextualCommas
	StageCloseString
	StageTruncatePlayers
)

var stageNames = map[Stage]string{
	StageNone:             "none",
	StageAsIs:             "as_is",
	StageTrailingCommas:   "trailing_commas",
	StageErrorOffset:      "error_offset",
	StageBraceBalance:     "brace_balance",
	StageContextualCommas: "contextual_commas",
	StageCloseString:      "close_string",
	StageTruncatePlayers:  "truncate_players",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

const (
	playersKey              = `"players"`
	maxTruncationCandidates = 64
	emptyTeamPlaceholder    = `{"insights":[],"strengths":[],"weaknesses":[]}`
)

// Attempt is one repair strategy. Fix returns the candidate text and false
// when the strategy does not apply to the input.
type Attempt struct {
	Stage Stage
	Fix   func(text string) (string, bool)
}

// Cascade is an ordered list of attempts; the first candidate that parses as
// a JSON object wins. A candidate that fails to parse but moves the first
// syntax error further into the text is carried into the next attempt, so
// composite defects are fixed one stage at a time. Each attempt also sees
// the untouched input.
type Cascade []Attempt

// Repaired is a structurally valid JSON object and the stage that produced it.
type Repaired struct {
	Text  string
	Stage Stage
}

func DefaultCascade() Cascade {
	return Cascade{
		{Stage: StageAsIs, Fix: parseAsIs},
		{Stage: StageTrailingCommas, Fix: removeTrailingCommas},
		{Stage: StageErrorOffset, Fix: insertCommaAtErrorOffset},
		{Stage: StageBraceBalance, Fix: balanceBraces},
		{Stage: StageContextualCommas, Fix: insertContextualCommas},
		{Stage: StageCloseString, Fix: closeDanglingString},
		{Stage: StageTruncatePlayers, Fix: truncateToPlayers},
	}
}

func (c Cascade) Repair(text string) (Repaired, bool) {
	current := text
	for _, attempt := range c {
		if attempt.Fix == nil {
			continue
		}
		inputs := []string{current}
		if current != text {
			inputs = append(inputs, text)
		}

		next := current
		for _, in := range inputs {
			candidate, ok := attempt.Fix(in)
			if !ok {
				continue
			}
			if isJSONObject(candidate) {
				return Repaired{Text: candidate, Stage: attempt.Stage}, true
			}
			if in == current && makesProgress(current, candidate) {
				next = candidate
			}
		}
		current = next
	}
	return Repaired{}, false
}

// makesProgress reports whether after parses further than before.
func makesProgress(before, after string) bool {
	return syntaxOffset(after) > syntaxOffset(before)
}

// syntaxOffset is the offset of the first syntax error in text, len(text)+1
// when text is valid and 0 when the failure carries no offset.
func syntaxOffset(text string) int64 {
	var raw json.RawMessage
	err := json.Unmarshal([]byte(text), &raw)
	if err == nil {
		return int64(len(text)) + 1
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	return 0
}

func isJSONObject(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	return json.Valid([]byte(trimmed))
}

func parseAsIs(text string) (string, bool) {
	return text, true
}

func removeTrailingCommas(text string) (string, bool) {
	cleaned := stripTrailingCommas(text)
	return cleaned, cleaned != text
}

func insertCommaAtErrorOffset(text string) (string, bool) {
	var v any
	err := json.Unmarshal([]byte(text), &v)

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return "", false
	}
	// Offset counts the bytes read including the one that was rejected. An
	// offset at the end means the text is cut short, not missing a comma.
	pos := int(syntaxErr.Offset) - 1
	if pos <= 0 || pos >= len(text)-1 {
		return "", false
	}
	return stripTrailingCommas(text[:pos] + "," + text[pos:]), true
}

func balanceBraces(text string) (string, bool) {
	opens, closes := countBraces(text)
	if opens <= closes {
		return "", false
	}

	trimmed := trimDangling(stripTrailingCommas(text))
	state := scan(trimmed)
	if state.inString {
		return "", false
	}

	var b strings.Builder
	b.WriteString(trimmed)
	if len(state.stack) > 0 {
		closeContainers(&b, state.stack, 0)
	} else {
		for i := 0; i < opens-closes; i++ {
			b.WriteString("\n}")
		}
	}
	return b.String(), true
}

func insertContextualCommas(text string) (string, bool) {
	repaired := insertMissingCommas(text)
	if repaired == text {
		return "", false
	}
	return stripTrailingCommas(repaired), true
}

func closeDanglingString(text string) (string, bool) {
	if countUnescapedQuotes(text)%2 == 0 {
		return "", false
	}
	state := scan(text)
	if !state.inString {
		return "", false
	}

	base := text
	if state.escaped {
		base = text[:len(text)-1]
	}
	repaired := base + `"`
	prefix := text[:state.stringStart]
	if n := len(state.stack); n > 0 && state.stack[n-1] == '{' {
		// A cut-off key cannot be completed, so drop it.
		if prev := lastSignificant(prefix); prev == '{' || prev == ',' {
			repaired = prefix
		}
	}

	repaired = trimDangling(stripTrailingCommas(repaired))
	var b strings.Builder
	b.WriteString(repaired)
	closeContainers(&b, scan(repaired).stack, 0)
	return b.String(), true
}

func truncateToPlayers(text string) (string, bool) {
	playersAt := strings.Index(text, playersKey)
	if playersAt < 0 {
		return "", false
	}

	candidates := playerClosings(text, playersAt)
	tried := 0
	for i := len(candidates) - 1; i >= 0 && tried < maxTruncationCandidates; i-- {
		tried++
		head := text[:candidates[i]+1]
		state := scan(head)
		if state.inString || len(state.stack) == 0 || state.stack[0] != '{' {
			continue
		}

		var b strings.Builder
		b.WriteString(head)
		closeContainers(&b, state.stack, 1)
		for _, slot := range []string{"team1", "team2"} {
			if strings.Contains(head, `"`+slot+`"`) {
				continue
			}
			b.WriteString(`,"` + slot + `":` + emptyTeamPlaceholder)
		}
		b.WriteString("}")

		if candidate := b.String(); isJSONObject(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// playerClosings lists offsets of every '}' after from that directly follows a
// ']' outside string literals, the shape that ends a complete player entry.
func playerClosings(text string, from int) []int {
	var (
		lex lexer
		out []int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !lex.step(c) || c != '}' || i <= from {
			continue
		}
		if lastSignificant(text[:i]) == ']' {
			out = append(out, i)
		}
	}
	return out
}
