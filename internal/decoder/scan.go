package decoder

import "strings"

// lexer tracks string-literal state while walking near-JSON text byte by byte.
type lexer struct {
	inString bool
	escaped  bool
}

// step consumes c and reports whether it is structural, i.e. outside any
// string literal and not a quote.
func (l *lexer) step(c byte) bool {
	if l.inString {
		switch {
		case l.escaped:
			l.escaped = false
		case c == '\\':
			l.escaped = true
		case c == '"':
			l.inString = false
		}
		return false
	}
	if c == '"' {
		l.inString = true
		return false
	}
	return true
}

type scanState struct {
	stack       []byte
	inString    bool
	escaped     bool
	stringStart int
}

// scan returns the containers still open at the end of text and whether text
// ends inside a string literal.
func scan(text string) scanState {
	var (
		lex   lexer
		state = scanState{stringStart: -1}
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		wasInString := lex.inString
		if !lex.step(c) {
			if !wasInString && lex.inString {
				state.stringStart = i
			}
			continue
		}
		switch c {
		case '{', '[':
			state.stack = append(state.stack, c)
		case '}', ']':
			if n := len(state.stack); n > 0 && state.stack[n-1] == opener(c) {
				state.stack = state.stack[:n-1]
			}
		}
	}
	state.inString = lex.inString
	state.escaped = lex.escaped
	if !state.inString {
		state.stringStart = -1
	}
	return state
}

// countUnescapedQuotes counts double quotes that are not preceded by a backslash escape.
func countUnescapedQuotes(text string) int {
	count := 0
	escaped := false
	for i := 0; i < len(text); i++ {
		switch {
		case escaped:
			escaped = false
		case text[i] == '\\':
			escaped = true
		case text[i] == '"':
			count++
		}
	}
	return count
}

func countBraces(text string) (opens, closes int) {
	var lex lexer
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !lex.step(c) {
			continue
		}
		switch c {
		case '{':
			opens++
		case '}':
			closes++
		}
	}
	return opens, closes
}

func stripTrailingCommas(text string) string {
	var (
		lex lexer
		b   strings.Builder
	)
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if lex.step(c) && c == ',' {
			if j := skipSpace(text, i+1); j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// insertMissingCommas adds a comma wherever a complete value is followed, after
// optional whitespace, by the start of another value.
func insertMissingCommas(text string) string {
	var (
		lex lexer
		b   strings.Builder
	)
	b.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		c := text[i]
		wasInString := lex.inString
		structural := lex.step(c)
		b.WriteByte(c)

		valueEnd := (wasInString && !lex.inString) || (structural && (c == '}' || c == ']'))
		if !valueEnd {
			continue
		}
		if j := skipSpace(text, i+1); j < len(text) && isValueStart(text[j]) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// closeContainers appends the closers for every container in stack above depth floor.
func closeContainers(b *strings.Builder, stack []byte, floor int) {
	for i := len(stack) - 1; i >= floor; i-- {
		b.WriteByte('\n')
		b.WriteByte(closer(stack[i]))
	}
}

// trimDangling drops trailing whitespace and a dangling separator, and fills a
// dangling key with null.
func trimDangling(text string) string {
	text = strings.TrimRight(text, " \t\r\n")
	for strings.HasSuffix(text, ",") {
		text = strings.TrimRight(strings.TrimSuffix(text, ","), " \t\r\n")
	}
	if strings.HasSuffix(text, ":") {
		text += "null"
	}
	return text
}

func skipSpace(text string, from int) int {
	for from < len(text) {
		switch text[from] {
		case ' ', '\t', '\r', '\n':
			from++
		default:
			return from
		}
	}
	return from
}

func lastSignificant(text string) byte {
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return text[i]
		}
	}
	return 0
}

func isValueStart(c byte) bool {
	return c == '"' || c == '{' || c == '['
}

func opener(c byte) byte {
	if c == '}' {
		return '{'
	}
	return '['
}

func closer(c byte) byte {
	if c == '{' {
		return '}'
	}
	return ']'
}
