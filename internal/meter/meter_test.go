package meter

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClock provides deterministic time for testing.
type mockClock struct {
	time time.Time
}

func newMockClock(t time.Time) *mockClock {
	return &mockClock{time: t}
}

func (c *mockClock) Now() time.Time {
	return c.time
}

func (c *mockClock) Advance(d time.Duration) {
	c.time = c.time.Add(d)
}

// pollStep drives one Wait call: the clock advances by advance, then the
// scripted outcome is returned.
type pollStep struct {
	advance time.Duration
	ready   bool
	err     error
}

// scriptedPoller replays poll outcomes and records the timeout passed to
// each Wait. Once the script is exhausted it behaves like an idle stream:
// the full timeout passes with nothing to read.
type scriptedPoller struct {
	clock    *mockClock
	steps    []pollStep
	timeouts []time.Duration
}

func (p *scriptedPoller) Wait(timeout time.Duration) (bool, error) {
	p.timeouts = append(p.timeouts, timeout)
	if len(p.steps) == 0 {
		p.clock.Advance(timeout)
		return false, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	p.clock.Advance(step.advance)
	return step.ready, step.err
}

// scriptedStream returns the scripted read sizes in order, then err (or
// empty reads when err is nil).
type scriptedStream struct {
	reads []int
	err   error
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	if len(s.reads) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, nil
	}
	n := s.reads[0]
	s.reads = s.reads[1:]
	return n, nil
}

func TestMeasure_AccumulatesBytes(t *testing.T) {
	clock := newMockClock(time.Now())
	poller := &scriptedPoller{
		clock: clock,
		steps: []pollStep{
			{advance: time.Second, ready: true},
			{advance: time.Second, ready: true},
			{advance: time.Second, ready: true},
			{advance: time.Second, ready: true},
			{advance: time.Second, ready: true},
		},
	}
	stream := &scriptedStream{reads: []int{188, 188, 188, 188, 188}}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(5 * time.Second)

	if res.Bytes != 940 {
		t.Errorf("Bytes = %d, want 940", res.Bytes)
	}
	if res.Elapsed != 5*time.Second {
		t.Errorf("Elapsed = %v, want 5s", res.Elapsed)
	}
	if res.LastRead != 188 {
		t.Errorf("LastRead = %d, want 188", res.LastRead)
	}
	if res.Interrupted {
		t.Error("Interrupted = true, want false")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestMeasure_IdleWindow(t *testing.T) {
	clock := newMockClock(time.Now())
	poller := &scriptedPoller{clock: clock}
	stream := &scriptedStream{}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(3 * time.Second)

	if res.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0", res.Bytes)
	}
	// Nothing was ever read, so the last read size stays zero.
	if res.LastRead != 0 {
		t.Errorf("LastRead = %d, want 0", res.LastRead)
	}
	if res.Elapsed != 3*time.Second {
		t.Errorf("Elapsed = %v, want 3s", res.Elapsed)
	}
	if res.Interrupted {
		t.Error("Interrupted = true, want false")
	}
}

func TestMeasure_RemainingBudgetTimeouts(t *testing.T) {
	clock := newMockClock(time.Now())
	poller := &scriptedPoller{
		clock: clock,
		steps: []pollStep{
			{advance: 2 * time.Second, ready: false},
			{advance: 2 * time.Second, ready: false},
			{advance: 1 * time.Second, ready: false},
		},
	}
	stream := &scriptedStream{}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(5 * time.Second)

	// Each wait gets only what is left of the budget.
	want := []time.Duration{5 * time.Second, 3 * time.Second, 1 * time.Second}
	if len(poller.timeouts) != len(want) {
		t.Fatalf("Wait called %d times, want %d", len(poller.timeouts), len(want))
	}
	for i, w := range want {
		if poller.timeouts[i] != w {
			t.Errorf("timeout[%d] = %v, want %v", i, poller.timeouts[i], w)
		}
	}

	if res.Elapsed != 5*time.Second {
		t.Errorf("Elapsed = %v, want 5s", res.Elapsed)
	}
}

func TestMeasure_PollInterrupted(t *testing.T) {
	errInterrupted := errors.New("interrupted system call")

	clock := newMockClock(time.Now())
	poller := &scriptedPoller{
		clock: clock,
		steps: []pollStep{
			{advance: time.Second, ready: true},
			{advance: time.Second, err: errInterrupted},
		},
	}
	stream := &scriptedStream{reads: []int{188}}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(5 * time.Second)

	// The window ends early with what was accumulated before the interrupt.
	if res.Bytes != 188 {
		t.Errorf("Bytes = %d, want 188", res.Bytes)
	}
	if !res.Interrupted {
		t.Error("Interrupted = false, want true")
	}
	if !errors.Is(res.Err, errInterrupted) {
		t.Errorf("Err = %v, want %v", res.Err, errInterrupted)
	}
	if res.Elapsed != 2*time.Second {
		t.Errorf("Elapsed = %v, want 2s", res.Elapsed)
	}
}

func TestMeasure_ReadError(t *testing.T) {
	errRead := errors.New("device unplugged")

	clock := newMockClock(time.Now())
	poller := &scriptedPoller{
		clock: clock,
		steps: []pollStep{{advance: time.Second, ready: true}},
	}
	stream := &scriptedStream{err: errRead}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(5 * time.Second)

	if res.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0", res.Bytes)
	}
	if !res.Interrupted {
		t.Error("Interrupted = false, want true")
	}
	if !errors.Is(res.Err, errRead) {
		t.Errorf("Err = %v, want %v", res.Err, errRead)
	}
}

func TestMeasure_ZeroBudget(t *testing.T) {
	clock := newMockClock(time.Now())
	poller := &scriptedPoller{clock: clock}
	stream := &scriptedStream{}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(0)

	if len(poller.timeouts) != 0 {
		t.Errorf("Wait called %d times, want 0", len(poller.timeouts))
	}
	if res.Bytes != 0 || res.Elapsed != 0 {
		t.Errorf("Result = %+v, want zero bytes and zero elapsed", res)
	}
}

func TestMeasure_EmptyReadsDoNotCount(t *testing.T) {
	clock := newMockClock(time.Now())
	poller := &scriptedPoller{
		clock: clock,
		steps: []pollStep{
			{advance: time.Second, ready: true},
			{advance: time.Second, ready: true},
		},
	}
	// First readiness turns out to be drained already, second has data.
	stream := &scriptedStream{reads: []int{0, 188}}

	m := NewWithClock(poller, stream, 4096, testLogger(), clock)
	res := m.Measure(2 * time.Second)

	if res.Bytes != 188 {
		t.Errorf("Bytes = %d, want 188", res.Bytes)
	}
	if res.LastRead != 188 {
		t.Errorf("LastRead = %d, want 188", res.LastRead)
	}
}

func TestRate(t *testing.T) {
	testCases := []struct {
		name    string
		bytes   int64
		elapsed time.Duration
		want    float64
	}{
		{"docsis_window", 940, 5 * time.Second, 1.47},
		{"zero_bytes", 0, 5 * time.Second, 0},
		{"zero_elapsed", 940, 0, 0},
		{"negative_elapsed", 940, -time.Second, 0},
		{"rounding", 1000, time.Second, 7.81},
		{"exact", 1228800, 10 * time.Second, 960},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Rate(tc.bytes, tc.elapsed)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Rate(%d, %v) = %v, want %v", tc.bytes, tc.elapsed, got, tc.want)
			}
		})
	}
}
