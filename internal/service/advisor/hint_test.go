package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TradePulse/internal/domain/models"
)

func TestClassifyHint(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Hint
	}{
		{"increase", "You should increase momentum exposure.", models.HintIncrease},
		{"decrease", "Decrease risk until volatility settles.", models.HintDecrease},
		{"case insensitive", "INCREASE position sizing", models.HintIncrease},
		{"both directions favors increase", "decrease sentiment weight but increase momentum", models.HintIncrease},
		{"no directive", "Markets look balanced today.", models.HintNeutral},
		{"empty", "", models.HintNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHint(tt.text))
		})
	}
}
