package sport

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type promptData struct {
	Sport
	Query Query
}

// BuildPrompt renders the sport's prompt for an already resolved query.
func BuildPrompt(s Sport, q Query) (string, error) {
	name := string(s.ID) + ".tmpl"
	if promptTemplates.Lookup(name) == nil {
		return "", fmt.Errorf("%w: no prompt template for %q", ErrUnknownSport, s.ID)
	}

	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, name, promptData{Sport: s, Query: q}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", s.ID, err)
	}
	return b.String(), nil
}
