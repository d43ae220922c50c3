package usecase

// Agent adapts a signal's influence from its own scoring history.
// Weight is the clamped mean of the history and defaults to 0.5 when the
// history is empty, so a fresh agent neither amplifies nor mutes its signal.
type Agent struct {
	name    string
	history []float64
	weight  float64
}

const (
	maxHistorySize = 100
	minAgentWeight = 0.1
	maxAgentWeight = 0.9
	neutralScore   = 0.5
)

// NewAgent creates an agent with an empty history and neutral weight.
func NewAgent(name string) *Agent {
	return &Agent{
		name:    name,
		history: make([]float64, 0, maxHistorySize),
		weight:  neutralScore,
	}
}

// Name returns the agent's signal name.
func (a *Agent) Name() string {
	return a.name
}

// Weight returns the current influence weight in [0.1, 0.9].
func (a *Agent) Weight() float64 {
	return a.weight
}

// HistoryLen returns the number of retained scores.
func (a *Agent) HistoryLen() int {
	return len(a.history)
}

// UpdateHistory appends a score in [0, 1], evicts the oldest entry once the
// window exceeds 100, and recomputes the weight.
func (a *Agent) UpdateHistory(score float64) {
	score = clamp(score, 0, 1)
	a.history = append(a.history, score)
	if len(a.history) > maxHistorySize {
		a.history = a.history[1:]
	}
	a.recompute()
}

// ShiftHistory moves every retained score by delta, clamped to [0, 1],
// and recomputes the weight.
func (a *Agent) ShiftHistory(delta float64) {
	for i, s := range a.history {
		a.history[i] = clamp(s+delta, 0, 1)
	}
	a.recompute()
}

func (a *Agent) recompute() {
	if len(a.history) == 0 {
		a.weight = neutralScore
		return
	}
	sum := 0.0
	for _, s := range a.history {
		sum += s
	}
	a.weight = clamp(sum/float64(len(a.history)), minAgentWeight, maxAgentWeight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
