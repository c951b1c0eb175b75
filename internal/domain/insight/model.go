package insight

// Payload is the canonical insight document for one generation.
type Payload struct {
	Players map[string]PlayerInsight `json:"players"`
	Team1   TeamInsight              `json:"team1"`
	Team2   TeamInsight              `json:"team2"`
	Venue   *VenueInsight            `json:"venue,omitempty"`
}

// PlayerInsight lists display-ordered observations about one player.
type PlayerInsight struct {
	Insights   Lines `json:"insights"`
	Strengths  Lines `json:"strengths"`
	Weaknesses Lines `json:"weaknesses"`
}

type TeamInsight struct {
	Insights   Lines `json:"insights"`
	Strengths  Lines `json:"strengths"`
	Weaknesses Lines `json:"weaknesses"`
}

type VenueInsight struct {
	Insights        Lines `json:"insights"`
	Characteristics Lines `json:"characteristics"`
}

// Useful reports whether the payload carries anything worth showing: at least
// one player, or a team with a non-empty list.
func (p *Payload) Useful() bool {
	if p == nil {
		return false
	}
	if len(p.Players) > 0 {
		return true
	}
	return p.Team1.HasContent() || p.Team2.HasContent()
}

func (t TeamInsight) HasContent() bool {
	return len(t.Insights) > 0 || len(t.Strengths) > 0 || len(t.Weaknesses) > 0
}

// Clone returns a deep copy of p.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	out := &Payload{
		Players: make(map[string]PlayerInsight, len(p.Players)),
		Team1:   p.Team1.clone(),
		Team2:   p.Team2.clone(),
	}
	for name, player := range p.Players {
		out.Players[name] = PlayerInsight{
			Insights:   player.Insights.Clone(),
			Strengths:  player.Strengths.Clone(),
			Weaknesses: player.Weaknesses.Clone(),
		}
	}
	if p.Venue != nil {
		out.Venue = &VenueInsight{
			Insights:        p.Venue.Insights.Clone(),
			Characteristics: p.Venue.Characteristics.Clone(),
		}
	}
	return out
}

// Normalize replaces nil collections with empty ones so the payload always
// serializes with every list present.
func (p *Payload) Normalize() {
	if p == nil {
		return
	}
	if p.Players == nil {
		p.Players = map[string]PlayerInsight{}
	}
	for name, player := range p.Players {
		player.Insights = player.Insights.orEmpty()
		player.Strengths = player.Strengths.orEmpty()
		player.Weaknesses = player.Weaknesses.orEmpty()
		p.Players[name] = player
	}
	p.Team1 = p.Team1.orEmpty()
	p.Team2 = p.Team2.orEmpty()
	if p.Venue != nil {
		p.Venue.Insights = p.Venue.Insights.orEmpty()
		p.Venue.Characteristics = p.Venue.Characteristics.orEmpty()
	}
}

func (t TeamInsight) clone() TeamInsight {
	return TeamInsight{
		Insights:   t.Insights.Clone(),
		Strengths:  t.Strengths.Clone(),
		Weaknesses: t.Weaknesses.Clone(),
	}
}

func (t TeamInsight) orEmpty() TeamInsight {
	return TeamInsight{
		Insights:   t.Insights.orEmpty(),
		Strengths:  t.Strengths.orEmpty(),
		Weaknesses: t.Weaknesses.orEmpty(),
	}
}
