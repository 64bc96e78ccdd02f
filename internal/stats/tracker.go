// Package stats folds per-cycle scan reports into run-lifetime aggregates:
// totals, per-channel state, and a rate distribution. The TUI reads live
// snapshots from here and the exit summary renders the final one.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/godtm/godtm/internal/scan"
)

// ChannelStats is the per-channel view maintained across cycles.
type ChannelStats struct {
	Tag          string
	Frequency    int
	Modulation   string
	LastRate     float64
	LastBytes    int64
	TotalBytes   int64
	Measurements int64
	LastSeen     time.Time
}

// Snapshot is a point-in-time copy of the run aggregates, safe to read
// without further locking.
type Snapshot struct {
	Cycles           int
	CyclesAborted    int
	ChannelsMeasured int64
	BytesRead        int64

	PointsEmitted    int64
	PointsDropped    int64
	EmissionFailures int64

	LastCycleRate     float64
	PeakCycleRate     float64
	LastCycleDuration time.Duration
	LastCycleMeasured int

	// Rate distribution over individual channel measurements, kbit/s.
	RateP50 float64
	RateP95 float64
	RateMax float64

	// Channels is sorted by frequency.
	Channels []ChannelStats
}

// Tracker accumulates cycle reports. One instance lives for the process;
// Record runs once per cycle from the scan loop, Snapshot from the TUI
// ticker and the exit path.
type Tracker struct {
	mu sync.Mutex

	cycles           int
	cyclesAborted    int
	channelsMeasured int64
	bytesRead        int64

	pointsEmitted    int64
	pointsDropped    int64
	emissionFailures int64

	lastCycleRate     float64
	peakCycleRate     float64
	lastCycleDuration time.Duration
	lastCycleMeasured int

	rateDigest *tdigest.TDigest
	rateMax    float64

	channels map[string]*ChannelStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		rateDigest: tdigest.NewWithCompression(100),
		channels:   make(map[string]*ChannelStats),
	}
}

// Record folds one cycle report into the aggregates.
func (t *Tracker) Record(report scan.CycleReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	if !report.Completed() {
		t.cyclesAborted++
	}

	t.channelsMeasured += int64(len(report.Points))
	t.lastCycleRate = report.TotalRate
	if report.TotalRate > t.peakCycleRate {
		t.peakCycleRate = report.TotalRate
	}
	t.lastCycleDuration = report.Duration
	t.lastCycleMeasured = len(report.Points)

	if report.EmitErr != nil {
		t.emissionFailures++
		t.pointsDropped += int64(len(report.Points))
	} else {
		t.pointsEmitted += int64(len(report.Points))
	}

	for _, p := range report.Points {
		t.bytesRead += p.Bytes
		t.rateDigest.Add(p.Rate, 1)
		if p.Rate > t.rateMax {
			t.rateMax = p.Rate
		}

		cs, ok := t.channels[p.Tag]
		if !ok {
			cs = &ChannelStats{
				Tag:        p.Tag,
				Frequency:  p.Frequency,
				Modulation: p.Modulation,
			}
			t.channels[p.Tag] = cs
		}
		cs.LastRate = p.Rate
		cs.LastBytes = p.Bytes
		cs.TotalBytes += p.Bytes
		cs.Measurements++
		cs.LastSeen = p.Time
	}
}

// Snapshot copies the current aggregates.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Cycles:            t.cycles,
		CyclesAborted:     t.cyclesAborted,
		ChannelsMeasured:  t.channelsMeasured,
		BytesRead:         t.bytesRead,
		PointsEmitted:     t.pointsEmitted,
		PointsDropped:     t.pointsDropped,
		EmissionFailures:  t.emissionFailures,
		LastCycleRate:     t.lastCycleRate,
		PeakCycleRate:     t.peakCycleRate,
		LastCycleDuration: t.lastCycleDuration,
		LastCycleMeasured: t.lastCycleMeasured,
		RateMax:           t.rateMax,
	}

	if t.channelsMeasured > 0 {
		snap.RateP50 = t.rateDigest.Quantile(0.50)
		snap.RateP95 = t.rateDigest.Quantile(0.95)
	}

	snap.Channels = make([]ChannelStats, 0, len(t.channels))
	for _, cs := range t.channels {
		snap.Channels = append(snap.Channels, *cs)
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		return snap.Channels[i].Frequency < snap.Channels[j].Frequency
	})

	return snap
}
