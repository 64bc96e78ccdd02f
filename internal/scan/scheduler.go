// Package scan drives the measurement loop: tune each planned channel in
// turn, meter its downstream rate for the per-channel budget, and ship the
// collected points to the configured backend once per cycle.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godtm/godtm/internal/channel"
	"github.com/godtm/godtm/internal/dvb"
	"github.com/godtm/godtm/internal/emit"
	"github.com/godtm/godtm/internal/meter"
	"github.com/godtm/godtm/internal/metrics"
)

// Tuner locks the frontend onto a channel and waits out the lock time.
type Tuner interface {
	Tune(t channel.Tunable, lockTime time.Duration) error
}

// Filter starts and stops the demux PES filter feeding the DVR device.
type Filter interface {
	StartFilter() error
	StopFilter() error
}

// Meter drains the DVR stream for one budgeted window.
type Meter interface {
	Measure(budget time.Duration) meter.Result
}

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// realClock uses the time package for production.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Callbacks holds optional hooks invoked by the scheduler.
// All callbacks are optional (can be nil).
type Callbacks struct {
	// OnCycleComplete is called after every cycle, aborted ones included.
	OnCycleComplete func(report CycleReport)
}

// SchedulerConfig holds the dependencies and tunables for a Scheduler.
type SchedulerConfig struct {
	Plan     channel.Plan
	Budget   time.Duration
	Interval time.Duration
	LockTime time.Duration

	Tuner   Tuner
	Filter  Filter
	Meter   Meter
	Emitter emit.Emitter
	Metrics *metrics.Collector

	Logger    *slog.Logger
	Clock     Clock
	Callbacks Callbacks
}

// Scheduler walks the channel plan in a fixed cadence. One Run per process.
type Scheduler struct {
	plan     channel.Plan
	budget   time.Duration
	interval time.Duration
	lockTime time.Duration

	tuner   Tuner
	filter  Filter
	meter   Meter
	emitter emit.Emitter
	metrics *metrics.Collector

	logger    *slog.Logger
	clock     Clock
	callbacks Callbacks

	cycle int
}

// NewScheduler creates a scheduler from the given configuration.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}

	return &Scheduler{
		plan:      cfg.Plan,
		budget:    cfg.Budget,
		interval:  cfg.Interval,
		lockTime:  cfg.LockTime,
		tuner:     cfg.Tuner,
		filter:    cfg.Filter,
		meter:     cfg.Meter,
		emitter:   cfg.Emitter,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		callbacks: cfg.Callbacks,
	}
}

// Run executes scan cycles until the context is cancelled. Cancellation is
// observed between channels and during the inter-cycle sleep; a measurement
// already in flight runs its budget out first.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scan_loop_starting",
		"channels", len(s.plan),
		"budget", s.budget.String(),
		"interval", s.interval.String(),
	)

	for {
		report := s.RunCycle(ctx)

		if s.callbacks.OnCycleComplete != nil {
			s.callbacks.OnCycleComplete(report)
		}

		if ctx.Err() != nil {
			s.logger.Info("scan_loop_stopping", "cycles", s.cycle)
			return nil
		}

		sleep := sleepDuration(s.interval, report.Duration)
		if sleep <= 0 {
			s.logger.Warn("cycle_overran_interval",
				"cycle", report.Cycle,
				"duration", report.Duration.String(),
				"interval", s.interval.String(),
			)
			s.metrics.CycleOverran()
			continue
		}

		s.logger.Debug("cycle_sleeping", "duration", sleep.String())
		select {
		case <-ctx.Done():
			s.logger.Info("scan_loop_stopping", "cycles", s.cycle)
			return nil
		case <-s.clock.After(sleep):
		}
	}
}

// RunCycle walks the plan once and ships the collected points. A tune or
// filter failure abandons the remaining channels: the device state is
// unknown at that point and measuring through it would produce garbage.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	s.cycle++
	start := s.clock.Now()

	report := CycleReport{
		Cycle:     s.cycle,
		Total:     len(s.plan),
		AbortedAt: -1,
	}

	s.logger.Info("scan_cycle_starting", "cycle", s.cycle, "channels", len(s.plan))

	for i, ch := range s.plan {
		if ctx.Err() != nil {
			report.AbortedAt = i
			report.Reason = ctx.Err()
			break
		}

		report.Attempted++
		point, err := s.measureChannel(ch)
		if point != nil {
			report.Points = append(report.Points, *point)
			report.TotalRate += point.Rate
		}
		if err != nil {
			report.AbortedAt = i
			report.Reason = err
			s.metrics.CycleAborted()
			s.logger.Error("scan_cycle_aborted",
				"cycle", s.cycle,
				"channel", ch.Tag(),
				"remaining", len(s.plan)-i-1,
				"error", err,
			)
			break
		}
	}

	report.EmitErr = s.emitPoints(report.Points)
	report.Duration = s.clock.Now().Sub(start)
	s.metrics.CycleCompleted(report.Duration, report.TotalRate)

	s.logger.Info("scan_cycle_complete",
		"cycle", s.cycle,
		"measured", len(report.Points),
		"attempted", report.Attempted,
		"total_rate_kbps", report.TotalRate,
		"duration", report.Duration.String(),
	)

	return report
}

// measureChannel tunes, filters, and meters a single channel. The returned
// point may be non-nil even when err is set: a failed filter stop still
// yields a valid measurement but poisons the channels after it.
func (s *Scheduler) measureChannel(ch channel.Tunable) (*emit.Point, error) {
	log := s.logger.With("channel", ch.Tag())

	if err := s.tuner.Tune(ch, s.lockTime); err != nil {
		stage := "unknown"
		var terr *dvb.TuneError
		if errors.As(err, &terr) {
			stage = terr.Stage.String()
		}
		s.metrics.TuneFailed(stage)
		log.Error("tune_failed", "stage", stage, "error", err)
		return nil, fmt.Errorf("channel %s: %w", ch, err)
	}
	log.Debug("channel_locked", "frequency", ch.Frequency, "modulation", ch.Modulation.String())

	if err := s.filter.StartFilter(); err != nil {
		s.metrics.FilterFailed("start")
		log.Error("filter_start_failed", "error", err)
		return nil, fmt.Errorf("channel %s: %w", ch, err)
	}

	result := s.meter.Measure(s.budget)

	stopErr := s.filter.StopFilter()
	if stopErr != nil {
		s.metrics.FilterFailed("stop")
		log.Error("filter_stop_failed", "error", stopErr)
	}

	if result.Interrupted {
		s.metrics.MeterInterrupted()
		log.Warn("measurement_interrupted",
			"bytes", result.Bytes,
			"elapsed", result.Elapsed.String(),
			"error", result.Err,
		)
	}

	rate := meter.Rate(result.Bytes, result.Elapsed)
	s.metrics.ChannelMeasured(ch.Tag(), result.Bytes, rate)
	log.Info("channel_measured",
		"bytes", result.Bytes,
		"rate_kbps", rate,
		"elapsed", result.Elapsed.String(),
		"last_read", result.LastRead,
	)

	point := &emit.Point{
		Tag:        ch.Tag(),
		Frequency:  ch.Frequency,
		Modulation: ch.Modulation.Tag(),
		Rate:       rate,
		Bytes:      result.Bytes,
		Time:       s.clock.Now(),
	}

	if stopErr != nil {
		return point, fmt.Errorf("channel %s: %w", ch, stopErr)
	}
	return point, nil
}

// emitPoints ships the cycle's batch to the backend. An empty cycle emits
// nothing. A failed write drops the batch; the next cycle starts fresh.
func (s *Scheduler) emitPoints(points []emit.Point) error {
	if len(points) == 0 {
		return nil
	}

	if err := s.emitter.Emit(points); err != nil {
		s.metrics.EmissionFailed(len(points))
		s.logger.Error("emission_failed", "points", len(points), "error", err)
		return err
	}

	s.metrics.PointsEmitted(len(points))
	s.logger.Debug("points_emitted", "points", len(points))
	return nil
}

// Cycles returns the number of cycles started so far.
func (s *Scheduler) Cycles() int {
	return s.cycle
}

// sleepDuration returns how long to pause so cycles start interval apart.
// A cycle that ran longer than the interval gets no pause.
func sleepDuration(interval, cycleDuration time.Duration) time.Duration {
	return interval - cycleDuration
}
