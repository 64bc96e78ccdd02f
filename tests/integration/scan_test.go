//go:build integration

// Package integration contains end-to-end tests that require external
// dependencies (a DVB-C tuner, or a reachable metrics backend).
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/godtm/godtm/internal/channel"
	"github.com/godtm/godtm/internal/dvb"
	"github.com/godtm/godtm/internal/emit"
	"github.com/godtm/godtm/internal/meter"
	"github.com/godtm/godtm/internal/metrics"
	"github.com/godtm/godtm/internal/scan"
	"github.com/godtm/godtm/internal/stats"
)

// testFrequencies is the scan plan for hardware tests.
// Set via GODTM_TEST_FREQUENCIES, e.g. "114:256".
func testFrequencies(t *testing.T) string {
	freqs := os.Getenv("GODTM_TEST_FREQUENCIES")
	if freqs == "" {
		t.Skip("GODTM_TEST_FREQUENCIES not set - skipping hardware test")
	}
	return freqs
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Fakes standing in for the DVB hardware
// =============================================================================

type fakeTuner struct {
	calls int
}

func (f *fakeTuner) Tune(t channel.Tunable, lockTime time.Duration) error {
	f.calls++
	return nil
}

type fakeFilter struct {
	starts int
	stops  int
}

func (f *fakeFilter) StartFilter() error {
	f.starts++
	return nil
}

func (f *fakeFilter) StopFilter() error {
	f.stops++
	return nil
}

// fakeMeter reports a fixed byte count per window.
type fakeMeter struct {
	bytes int64
}

func (f *fakeMeter) Measure(budget time.Duration) meter.Result {
	return meter.Result{Bytes: f.bytes, Elapsed: budget, LastRead: 2048}
}

// =============================================================================
// Scan cycle against a real graphite UDP socket
// =============================================================================

// TestIntegration_ScanCycle_GraphiteUDP runs a full scan cycle with the
// hardware faked out but a real graphite emitter writing to a real UDP
// listener, and checks the plaintext lines that arrive on the wire.
func TestIntegration_ScanCycle_GraphiteUDP(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP failed: %v", err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	var mu sync.Mutex
	var lines []string
	go func() {
		buf := make([]byte, 1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			mu.Lock()
			lines = append(lines, strings.TrimSpace(string(buf[:n])))
			mu.Unlock()
		}
	}()

	emitter, err := emit.NewGraphite("127.0.0.1", port, "godtm", testLogger())
	if err != nil {
		t.Fatalf("NewGraphite failed: %v", err)
	}
	defer emitter.Close()

	plan, err := channel.Parse("114:256,122:64")
	if err != nil {
		t.Fatalf("parsing plan: %v", err)
	}

	tracker := stats.NewTracker()
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Frequencies: plan.String(),
		Backend:     "graphite",
		Channels:    len(plan),
	}, prometheus.NewRegistry())

	// 2_560_000 bytes in 2 seconds is 10000 kbit/s.
	sched := scan.NewScheduler(scan.SchedulerConfig{
		Plan:     plan,
		Budget:   2 * time.Second,
		Interval: 10 * time.Second,
		LockTime: 100 * time.Millisecond,
		Tuner:    &fakeTuner{},
		Filter:   &fakeFilter{},
		Meter:    &fakeMeter{bytes: 2_560_000},
		Emitter:  emitter,
		Metrics:  collector,
		Logger:   testLogger(),
		Callbacks: scan.Callbacks{
			OnCycleComplete: tracker.Record,
		},
	})

	report := sched.RunCycle(context.Background())

	if !report.Completed() {
		t.Fatalf("cycle aborted at %d: %v", report.AbortedAt, report.Reason)
	}
	if report.EmitErr != nil {
		t.Fatalf("emission failed: %v", report.EmitErr)
	}
	if len(report.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(report.Points))
	}

	// Wait for the datagrams to land
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()

	if len(lines) != 2 {
		t.Fatalf("received %d graphite lines, want 2: %v", len(lines), lines)
	}
	for _, prefix := range []string{"godtm.qam256.114 10000.00 ", "godtm.qam64.122 10000.00 "} {
		found := false
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no line with prefix %q in %v", prefix, lines)
		}
	}

	// The tracker saw the same cycle the wire did
	snap := tracker.Snapshot()
	if snap.Cycles != 1 {
		t.Errorf("tracker cycles = %d, want 1", snap.Cycles)
	}
	if snap.PointsEmitted != 2 {
		t.Errorf("tracker points emitted = %d, want 2", snap.PointsEmitted)
	}
	if snap.BytesRead != 5_120_000 {
		t.Errorf("tracker bytes = %d, want 5120000", snap.BytesRead)
	}
}

// =============================================================================
// Real tuner hardware
// =============================================================================

// TestIntegration_Meter_RealTuner tunes real hardware and drains the DVR for
// a short window. It needs a DVB-C adapter with a live cable plant, so it
// only runs when GODTM_TEST_FREQUENCIES is set.
func TestIntegration_Meter_RealTuner(t *testing.T) {
	freqs := testFrequencies(t)

	plan, err := channel.Parse(freqs)
	if err != nil {
		t.Fatalf("parsing %q: %v", freqs, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	device, err := dvb.Open(0, 0, logger)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer device.Close()

	if err := device.SetBufferSize(dvb.BufferSize); err != nil {
		t.Fatalf("SetBufferSize failed: %v", err)
	}

	m := meter.New(device.Poller(), device.DVR(), dvb.BufferSize, logger)

	for _, ch := range plan {
		if err := device.Tune(ch, time.Second); err != nil {
			t.Fatalf("Tune %s failed: %v", ch, err)
		}
		if err := device.StartFilter(); err != nil {
			t.Fatalf("StartFilter failed: %v", err)
		}

		result := m.Measure(3 * time.Second)

		if err := device.StopFilter(); err != nil {
			t.Errorf("StopFilter failed: %v", err)
		}

		rate := meter.Rate(result.Bytes, result.Elapsed)
		t.Logf("%s: %d bytes in %s = %.2f kbit/s (interrupted=%v)",
			ch, result.Bytes, result.Elapsed, rate, result.Interrupted)

		if result.Interrupted {
			t.Errorf("measurement interrupted: %v", result.Err)
		}
	}
}
