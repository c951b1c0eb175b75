package decoder

import "github.com/riskibarqy/sports-insights/internal/domain/insight"

// PreferFinal returns final unchanged when it is useful, and local otherwise.
func PreferFinal(final, local *insight.Payload) *insight.Payload {
	if final.Useful() {
		return final
	}
	return local
}
