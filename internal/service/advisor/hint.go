package advisor

import (
	"strings"

	"TradePulse/internal/domain/models"
)

// ClassifyHint reduces free-form advisory text to the closed hint enum.
// Classification happens exactly once, here at the boundary; downstream code
// never inspects advisory text. When the text argues both ways, increase
// wins.
func ClassifyHint(text string) models.Hint {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "increase"):
		return models.HintIncrease
	case strings.Contains(lowered, "decrease"):
		return models.HintDecrease
	default:
		return models.HintNeutral
	}
}
