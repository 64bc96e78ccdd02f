// Package emit delivers per-channel rate measurements to a metrics backend.
// Two backends are supported: InfluxDB 1.x batch writes and graphite
// plaintext lines over UDP. Either way a cycle's points travel as one batch
// and a failed batch is dropped, never retried.
package emit

import (
	"fmt"
	"time"
)

// Point is one channel's measured rate for one cycle. Built by the
// scheduler, immutable afterwards; ownership passes to the Emitter.
type Point struct {
	Tag        string    // channel identity, e.g. "qam256.114"
	Frequency  int       // MHz
	Modulation string    // "qam64" or "qam256"
	Rate       float64   // kbit/s, rounded to two decimals
	Bytes      int64     // bytes behind the rate, carried for reporting only
	Time       time.Time // end of the channel's measurement window
}

// Emitter sends one cycle's points in a single call. Close releases the
// backend connection at shutdown.
type Emitter interface {
	Emit(points []Point) error
	Close() error
}

// EmissionError reports a failed batch send. The scheduler logs it and
// drops the cycle's points; the process carries on.
type EmissionError struct {
	Backend string
	Err     error
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("emitting to %s: %v", e.Backend, e.Err)
}

func (e *EmissionError) Unwrap() error { return e.Err }
