package sport

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownSport = errors.New("unknown sport")

// ID is the lower-case sport identifier used in routes and storage.
type ID string

const (
	NBA ID = "nba"
	AFL ID = "afl"
	NRL ID = "nrl"
	EPL ID = "epl"
	IPL ID = "ipl"
)

const csvMimeType = "text/csv"

// DataFile is one statistics file sent to the model with every prompt.
type DataFile struct {
	Path     string
	MimeType string
}

// Sport describes what a sport's generation needs: its data files, which
// sections the payload carries, and the defaults the UI starts from.
type Sport struct {
	ID             ID
	Name           string
	DataFiles      []DataFile
	HasPlayers     bool
	HasVenue       bool
	DefaultTeam1   string
	DefaultTeam2   string
	DefaultPlayers []string
	DefaultVenue   string
}

// DisplayName is the remote file label, e.g. "NBA - NBA_PlayerStats.csv".
func (s Sport) DisplayName(file DataFile) string {
	base := file.Path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.ToUpper(string(s.ID)) + " - " + base
}

// Catalog is the fixed set of supported sports.
type Catalog struct {
	sports map[ID]Sport
}

func DefaultCatalog() Catalog {
	return NewCatalog(
		Sport{
			ID:   NBA,
			Name: "NBA",
			DataFiles: csvFiles(
				"NBA_PlayerStats.csv",
				"NBA_Team_Stats.csv",
			),
			HasPlayers:     true,
			DefaultTeam1:   "Lakers",
			DefaultTeam2:   "Mavericks",
			DefaultPlayers: []string{"LeBron James", "Anthony Davis"},
		},
		Sport{
			ID:   AFL,
			Name: "AFL",
			DataFiles: csvFiles(
				"AFL_players_1711.csv",
				"AFL_teams_1711.csv",
			),
			HasPlayers: true,
		},
		Sport{
			ID:   NRL,
			Name: "NRL",
			DataFiles: csvFiles(
				"NRL_Players_recent_try_form141125.csv",
				"NRL_TeamAnalysis.csv",
			),
			HasPlayers: true,
		},
		Sport{
			ID:        EPL,
			Name:      "EPL",
			DataFiles: csvFiles("EPL_TeamData_121125.csv"),
		},
		Sport{
			ID:   IPL,
			Name: "IPL",
			DataFiles: csvFiles(
				"IPL/Batters_StrikeRateVSBowlerTypeNew.csv",
				"IPL/IPL_21_24_Batting.csv",
				"IPL/IPL_Venue_details.csv",
				"IPL/VenueTossDecisions.csv",
				"IPL/VenueToss_Situation_Details.csv",
			),
			HasPlayers:   true,
			HasVenue:     true,
			DefaultVenue: "Wankhede Stadium",
		},
	)
}

func NewCatalog(sports ...Sport) Catalog {
	c := Catalog{sports: make(map[ID]Sport, len(sports))}
	for _, s := range sports {
		c.sports[s.ID] = s
	}
	return c
}

// Lookup resolves raw case-insensitively.
func (c Catalog) Lookup(raw string) (Sport, error) {
	id := ID(strings.ToLower(strings.TrimSpace(raw)))
	s, ok := c.sports[id]
	if !ok {
		return Sport{}, fmt.Errorf("%w: %q", ErrUnknownSport, raw)
	}
	return s, nil
}

// List returns every sport ordered by ID.
func (c Catalog) List() []Sport {
	out := make([]Sport, 0, len(c.sports))
	for _, s := range c.sports {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c Catalog) IDs() []ID {
	sports := c.List()
	out := make([]ID, 0, len(sports))
	for _, s := range sports {
		out = append(out, s.ID)
	}
	return out
}

func csvFiles(paths ...string) []DataFile {
	out := make([]DataFile, 0, len(paths))
	for _, path := range paths {
		out = append(out, DataFile{Path: path, MimeType: csvMimeType})
	}
	return out
}
