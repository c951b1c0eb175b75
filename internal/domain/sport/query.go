package sport

import "strings"

const notApplicable = "N/A"

// Query is what the user asked insights about.
type Query struct {
	SelectedPlayers []string
	Team1           string
	Team2           string
	Venue           string
}

// Resolve trims the query and fills blanks the way prompts expect them.
func (s Sport) Resolve(q Query) Query {
	out := Query{
		Team1: strings.TrimSpace(q.Team1),
		Team2: strings.TrimSpace(q.Team2),
		Venue: strings.TrimSpace(q.Venue),
	}
	for _, name := range q.SelectedPlayers {
		if name = strings.TrimSpace(name); name != "" {
			out.SelectedPlayers = append(out.SelectedPlayers, name)
		}
	}
	if !s.HasPlayers {
		out.SelectedPlayers = nil
	}

	if out.Team1 == "" {
		out.Team1 = notApplicable
	}
	if out.Team2 == "" {
		out.Team2 = notApplicable
	}
	if s.HasVenue && out.Venue == "" {
		out.Venue = s.DefaultVenue
	}
	if !s.HasVenue {
		out.Venue = ""
	}
	return out
}

func (q Query) PlayersLabel() string {
	if len(q.SelectedPlayers) == 0 {
		return notApplicable
	}
	return strings.Join(q.SelectedPlayers, ", ")
}
