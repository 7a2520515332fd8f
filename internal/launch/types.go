package launch

import (
	"time"

	"github.com/google/uuid"
)

// Report is the observed record of a single launch.
type Report struct {
	ID         uuid.UUID    `json:"id"`
	StartedAt  time.Time    `json:"startedAt"`
	Steps      []StepRecord `json:"steps"`
	Result     bool         `json:"result"`
	DurationMs int64        `json:"durationMs"`
}

// StepRecord describes one step execution inside a launch.
type StepRecord struct {
	Name       string `json:"name"`
	Order      int    `json:"order"`
	DurationMs int64  `json:"durationMs"`
}

// Observer is notified as a launch progresses. Implementations must not block.
type Observer interface {
	StepDone(name string, d time.Duration)
	LaunchDone(result bool, d time.Duration)
}
