package models

import "time"

// PositionState is the lifecycle state of a pair's position.
type PositionState string

const (
	StateFlat PositionState = "flat"
	StateLong PositionState = "long"
)

// Hint is the classified advisory outcome applied to agent histories.
type Hint int

const (
	HintNeutral Hint = iota
	HintIncrease
	HintDecrease
)

func (h Hint) String() string {
	switch h {
	case HintIncrease:
		return "increase"
	case HintDecrease:
		return "decrease"
	default:
		return "neutral"
	}
}

// PositionView is the read-only snapshot exposed by the status API.
type PositionView struct {
	Pair       string        `json:"pair"`
	State      PositionState `json:"state"`
	EntryPrice float64       `json:"entry_price,omitempty"`
	Size       float64       `json:"size,omitempty"`
	EntryTime  time.Time     `json:"entry_time,omitzero"`
}
