package dvb

import "fmt"

// TuneStage identifies how far a tune attempt got before failing.
type TuneStage int

const (
	// StageCommandRejected means the frontend refused the tune command batch.
	StageCommandRejected TuneStage = iota

	// StageStatusUnavailable means lock status could not be read back.
	StageStatusUnavailable

	// StageNoLock means the frontend settled but never acquired signal lock.
	StageNoLock
)

// String returns a short name for the stage.
func (s TuneStage) String() string {
	switch s {
	case StageCommandRejected:
		return "command_rejected"
	case StageStatusUnavailable:
		return "status_unavailable"
	case StageNoLock:
		return "no_lock"
	default:
		return "unknown"
	}
}

// TuneError reports a failed tune attempt. It aborts the remaining channels
// of the current scan cycle but is never fatal to the process.
type TuneError struct {
	Frequency int // MHz
	Stage     TuneStage
	Err       error // underlying device error, nil for NoLock
}

func (e *TuneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tuning %d MHz: %s: %v", e.Frequency, e.Stage, e.Err)
	}
	return fmt.Sprintf("tuning %d MHz: %s", e.Frequency, e.Stage)
}

func (e *TuneError) Unwrap() error { return e.Err }

// FilterError reports a failed demux filter control call.
type FilterError struct {
	Op  string // "start" or "stop"
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s filter: %v", e.Op, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }
