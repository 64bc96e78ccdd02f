package scan

import (
	"time"

	"github.com/godtm/godtm/internal/emit"
)

// CycleReport summarizes one walk over the channel plan.
type CycleReport struct {
	// Cycle is the 1-based cycle number since process start.
	Cycle int

	// Points holds one metric point per measured channel, in plan order.
	Points []emit.Point

	// Attempted counts channels the cycle visited, including the one it
	// may have aborted on. Total is the plan size.
	Attempted int
	Total     int

	// AbortedAt is the plan index of the channel whose failure abandoned
	// the cycle, -1 when the cycle walked the whole plan.
	AbortedAt int

	// Reason is the failure behind AbortedAt.
	Reason error

	// EmitErr is the batch write failure, nil when the batch was delivered
	// or there was nothing to deliver.
	EmitErr error

	// Duration is the wall-clock time of the whole cycle, emission included.
	Duration time.Duration

	// TotalRate is the sum of the measured channel rates in kbit/s.
	TotalRate float64
}

// Completed reports whether the cycle visited every planned channel.
func (r CycleReport) Completed() bool {
	return r.AbortedAt < 0
}
