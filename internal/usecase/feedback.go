package usecase

import (
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

const hintShift = 0.1

// FeedbackLoop folds classified advisory hints back into the agents, at
// most once per completed minute regardless of how often it is invoked.
type FeedbackLoop struct {
	engine     *SignalEngine
	logger     *logger.Logger
	lastMinute time.Time
}

// NewFeedbackLoop wires the feedback loop onto a signal engine.
func NewFeedbackLoop(engine *SignalEngine, log *logger.Logger) *FeedbackLoop {
	return &FeedbackLoop{engine: engine, logger: log}
}

// Apply shifts every agent's history per the hint and then reinforces a
// neutral score on all of them. Returns false when the current minute was
// already handled.
func (f *FeedbackLoop) Apply(hint models.Hint, now time.Time) bool {
	minute := now.Truncate(time.Minute)
	if minute.Equal(f.lastMinute) {
		return false
	}
	f.lastMinute = minute

	switch hint {
	case models.HintIncrease:
		f.engine.ShiftHistories(hintShift)
	case models.HintDecrease:
		f.engine.ShiftHistories(-hintShift)
	}
	f.engine.ReinforceNeutral()

	f.logger.Info("feedback applied",
		logger.String("hint", hint.String()),
		logger.String("minute", minute.Format(time.RFC3339)),
	)
	return true
}
