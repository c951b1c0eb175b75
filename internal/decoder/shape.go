package decoder

import (
	"strings"
	"unicode"
)

const (
	keyPlayers = "players"
	keyTeam1   = "team1"
	keyTeam2   = "team2"
	keyVenue   = "venue"

	minNameTokenLength = 4
)

// Hints carries the team names the request asked about, in slot order.
type Hints struct {
	Team1 string
	Team2 string
}

// adaptShape renames team-name keys to the canonical team1/team2 slots when
// the model used real names instead. Matching is by case-insensitive name
// overlap; unmatched slots take the remaining candidate keys in order.
func adaptShape(doc document, hints Hints) document {
	if doc.has(keyTeam1) || doc.has(keyTeam2) {
		return doc
	}

	var candidates []int
	for i, m := range doc {
		if isReservedKey(m.Key) || !isObjectValue(m.Value) {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) < 2 {
		return doc
	}

	slots := [2]struct {
		key  string
		hint string
		at   int
	}{
		{key: keyTeam1, hint: hints.Team1, at: -1},
		{key: keyTeam2, hint: hints.Team2, at: -1},
	}
	used := make(map[int]bool, 2)

	for s := range slots {
		for _, ci := range candidates {
			if !used[ci] && namesMatch(doc[ci].Key, slots[s].hint) {
				slots[s].at = ci
				used[ci] = true
				break
			}
		}
	}
	for s := range slots {
		if slots[s].at >= 0 {
			continue
		}
		for _, ci := range candidates {
			if !used[ci] {
				slots[s].at = ci
				used[ci] = true
				break
			}
		}
	}

	out := make(document, len(doc))
	copy(out, doc)
	for _, slot := range slots {
		out[slot.at].Key = slot.key
	}
	return out
}

func isReservedKey(key string) bool {
	switch key {
	case keyPlayers, keyVenue, keyTeam1, keyTeam2:
		return true
	default:
		return false
	}
}

func namesMatch(key, name string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	name = strings.ToLower(strings.TrimSpace(name))
	if key == "" || name == "" || name == "n/a" {
		return false
	}
	if strings.Contains(key, name) || strings.Contains(name, key) {
		return true
	}
	for _, token := range strings.FieldsFunc(name, notLetterOrDigit) {
		if len(token) >= minNameTokenLength && strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func notLetterOrDigit(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
