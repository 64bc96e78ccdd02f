// Package meter measures how many transport stream bytes arrive on a tuned
// channel within a fixed time budget.
package meter

import (
	"log/slog"
	"time"
)

// Poller waits for the stream to become readable.
type Poller interface {
	Wait(timeout time.Duration) (bool, error)
}

// Stream is the non-blocking transport stream handle. A drained stream
// reports (0, nil), not an error.
type Stream interface {
	Read(p []byte) (int, error)
}

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

// realClock uses time.Now() for production.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Result is the outcome of one measurement window.
type Result struct {
	// Bytes is the total read within the window. Monotonically
	// non-decreasing while the window runs.
	Bytes int64

	// Elapsed is the wall-clock duration of the read loop, used for the
	// rate computation. It is the actual loop time, not the nominal budget.
	Elapsed time.Duration

	// LastRead is the size of the final read, 0 if nothing ever arrived.
	LastRead int

	// Interrupted is set when a poll or read error ended the window early.
	Interrupted bool

	// Err is what ended the window early, nil when the budget simply ran out.
	Err error
}

// Meter drains a stream for one budgeted window per channel. The poller and
// stream are set up once for the process lifetime; only Measure runs per
// channel.
type Meter struct {
	poller Poller
	stream Stream
	buf    []byte
	clock  Clock
	log    *slog.Logger
}

// New creates a Meter reading into a bufSize-byte buffer.
func New(poller Poller, stream Stream, bufSize int, log *slog.Logger) *Meter {
	return NewWithClock(poller, stream, bufSize, log, realClock{})
}

// NewWithClock creates a Meter with a custom clock for testing.
func NewWithClock(poller Poller, stream Stream, bufSize int, log *slog.Logger, clock Clock) *Meter {
	return &Meter{
		poller: poller,
		stream: stream,
		buf:    make([]byte, bufSize),
		clock:  clock,
		log:    log,
	}
}

// Measure drains the stream until the budget is spent. Every wait uses the
// remaining budget as its timeout, so the window cannot overrun the budget
// by more than one poll quantum. Bytes only accumulate when a read returns
// them; idle waits burn budget without advancing LastRead. A poll or read
// error ends the window early with whatever was accumulated so far.
func (m *Meter) Measure(budget time.Duration) Result {
	var res Result

	start := m.clock.Now()
	deadline := start.Add(budget)

	for {
		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			break
		}

		ready, err := m.poller.Wait(remaining)
		if err != nil {
			m.log.Warn("poll_interrupted", "error", err)
			res.Interrupted = true
			res.Err = err
			break
		}
		if !ready {
			continue
		}

		n, err := m.stream.Read(m.buf)
		if err != nil {
			m.log.Warn("stream_read_failed", "error", err)
			res.Interrupted = true
			res.Err = err
			break
		}
		if n > 0 {
			res.Bytes += int64(n)
			res.LastRead = n
		}
	}

	res.Elapsed = m.clock.Now().Sub(start)
	return res
}
