package model

// Metadata describes a driver after setup.
type Metadata struct {
	Backend     string `json:"backend"`
	InputShape  []int  `json:"input_shape"`
	OutputShape []int  `json:"output_shape"`
	ArenaUsed   int    `json:"arena_used"`
	ArenaSize   int    `json:"arena_size"`
}

// Prediction is the outcome of one label decision.
type Prediction struct {
	Index       int             `json:"index"`
	Class       string          `json:"class"`
	Score       int8            `json:"score"`
	Predictions map[string]int8 `json:"predictions"`
}

// State is the driver lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}
