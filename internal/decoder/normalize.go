package decoder

import (
	"regexp"
	"strings"
)

var (
	fenceJSONRegex    = regexp.MustCompile("(?i)```json")
	leadingTokenRegex = regexp.MustCompile(`(?i)^json\b`)

	typographicReplacer = strings.NewReplacer(
		"\u2018", "'",
		"\u2019", "'",
		"\u201c", `"`,
		"\u201d", `"`,
		"\u2013", "-",
		"\u2014", "-",
		"\u2026", "...",
		"\u00a0", " ",
	)
)

// Normalize prepares model output for parsing. It strips code fences and any
// prose around the outermost object and maps typographic punctuation to ASCII.
// The result may still be invalid JSON.
func Normalize(text string) string {
	text = fenceJSONRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(leadingTokenRegex.ReplaceAllString(text, ""))

	if start := strings.IndexByte(text, '{'); start >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > start {
			text = text[start : end+1]
		}
	}

	text = typographicReplacer.Replace(text)
	return strings.Map(dropControl, text)
}

func dropControl(r rune) rune {
	if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
		return -1
	}
	return r
}
