package decoder

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
)

// toPayload maps canonical members onto the payload. Members that do not fit
// the schema are left empty rather than failing the whole document.
func toPayload(doc document) *insight.Payload {
	p := &insight.Payload{Players: map[string]insight.PlayerInsight{}}

	if raw := doc.value(keyPlayers); isObjectValue(raw) {
		var players map[string]json.RawMessage
		if err := sonic.Unmarshal(raw, &players); err == nil {
			for name, value := range players {
				var player insight.PlayerInsight
				if isObjectValue(value) && sonic.Unmarshal(value, &player) == nil {
					p.Players[name] = player
				}
			}
		}
	}
	decodeObject(doc.value(keyTeam1), &p.Team1)
	decodeObject(doc.value(keyTeam2), &p.Team2)

	if raw := doc.value(keyVenue); isObjectValue(raw) {
		var venue insight.VenueInsight
		if sonic.Unmarshal(raw, &venue) == nil {
			p.Venue = &venue
		}
	}

	p.Normalize()
	return p
}

func decodeObject(raw json.RawMessage, target any) {
	if !isObjectValue(raw) {
		return
	}
	_ = sonic.Unmarshal(raw, target)
}
