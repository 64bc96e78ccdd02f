// Package orchestrator wires the DVB device, scan scheduler, emission
// backend, Prometheus metrics, and optional TUI into a metering run.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/common/version"

	"github.com/godtm/godtm/internal/config"
	"github.com/godtm/godtm/internal/dvb"
	"github.com/godtm/godtm/internal/emit"
	"github.com/godtm/godtm/internal/meter"
	"github.com/godtm/godtm/internal/metrics"
	"github.com/godtm/godtm/internal/preflight"
	"github.com/godtm/godtm/internal/scan"
	"github.com/godtm/godtm/internal/stats"
	"github.com/godtm/godtm/internal/tui"
)

// shutdownTimeout bounds how long shutdown waits for an in-flight
// measurement to run out its budget.
const shutdownTimeout = 10 * time.Second

// Orchestrator coordinates all components for a metering run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	device        *dvb.Device
	emitter       emit.Emitter
	scheduler     *scan.Scheduler
	tracker       *stats.Tracker
	metrics       *metrics.Collector
	metricsServer *metrics.Server

	// tuiProgram is nil unless the dashboard is enabled.
	tuiProgram *tea.Program

	startTime time.Time
}

// New creates a new Orchestrator with the given configuration. It opens the
// DVB devices, so the caller owns a claimed tuner once this returns nil error.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	// Preflight runs before the device opens so a missing driver or a
	// permissions problem reads as a report, not a raw open error.
	if !cfg.SkipPreflight {
		result := preflight.RunAll(cfg.Adapter, cfg.Tuner, cfg.Budget())
		preflight.PrintResults(result)
		if !result.Passed {
			return nil, fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	device, err := dvb.Open(cfg.Adapter, cfg.Tuner, logger)
	if err != nil {
		return nil, fmt.Errorf("opening dvb adapter %d tuner %d: %w", cfg.Adapter, cfg.Tuner, err)
	}

	if err := device.SetBufferSize(dvb.BufferSize); err != nil {
		device.Close()
		return nil, fmt.Errorf("sizing demux buffer: %w", err)
	}

	emitter, err := newEmitter(cfg, logger)
	if err != nil {
		device.Close()
		return nil, err
	}

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version:     version.Version,
		Frequencies: cfg.Channels.String(),
		Backend:     cfg.Backend,
		Channels:    len(cfg.Channels),
		Interval:    cfg.Interval,
		Budget:      cfg.Budget(),
	})
	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)

	orch := &Orchestrator{
		config:        cfg,
		logger:        logger,
		device:        device,
		emitter:       emitter,
		tracker:       stats.NewTracker(),
		metrics:       collector,
		metricsServer: metricsServer,
	}

	orch.scheduler = scan.NewScheduler(scan.SchedulerConfig{
		Plan:     cfg.Channels,
		Budget:   cfg.Budget(),
		Interval: cfg.Interval,
		LockTime: cfg.LockTime,
		Tuner:    device,
		Filter:   device,
		Meter:    meter.New(device.Poller(), device.DVR(), dvb.BufferSize, logger),
		Emitter:  emitter,
		Metrics:  collector,
		Logger:   logger,
		Callbacks: scan.Callbacks{
			OnCycleComplete: orch.onCycleComplete,
		},
	})

	if cfg.TUIEnabled {
		model := tui.New(tui.Config{
			Channels:    len(cfg.Channels),
			Plan:        cfg.Channels.String(),
			Backend:     cfg.Backend,
			MetricsAddr: cfg.MetricsAddr,
			Source:      orch.tracker,
		})
		orch.tuiProgram = tea.NewProgram(model, tea.WithAltScreen())
	}

	return orch, nil
}

// newEmitter builds the emission backend selected by the configuration.
func newEmitter(cfg *config.Config, logger *slog.Logger) (emit.Emitter, error) {
	switch cfg.Backend {
	case "influxdb":
		return emit.NewInflux(cfg.InfluxURL, cfg.InfluxUsername, cfg.InfluxPassword, cfg.InfluxDatabase, logger)
	case "graphite":
		return emit.NewGraphite(cfg.GraphiteHost, cfg.GraphitePort, cfg.GraphitePrefix, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Run executes the metering loop. It blocks until a signal arrives, the
// dashboard is closed, or the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	if err := o.metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- o.scheduler.Run(ctx)
	}()

	// The dashboard owns the terminal while it runs. Ctrl+C arrives as a
	// key press in that mode, so quitting the dashboard is a shutdown path
	// of its own.
	var tuiDone chan error
	if o.tuiProgram != nil {
		tuiDone = make(chan error, 1)
		go func() {
			_, err := o.tuiProgram.Run()
			tuiDone <- err
		}()
	}

	// Wait for a completion signal
	var scanErr error
	scanExited := false
	tuiExited := false
	select {
	case sig := <-sigCh:
		o.logger.Info("received_signal", "signal", sig.String())
	case scanErr = <-scanDone:
		scanExited = true
	case err := <-tuiDone:
		tuiExited = true
		if err != nil {
			o.logger.Warn("dashboard_error", "error", err)
		}
		o.logger.Info("dashboard_closed")
	case <-ctx.Done():
		o.logger.Info("context_cancelled")
	}

	cancel()

	// Drain the scan loop. A measurement already in flight runs out its
	// budget before the scheduler observes the cancellation.
	if !scanExited {
		select {
		case scanErr = <-scanDone:
		case <-time.After(shutdownTimeout):
			o.logger.Warn("scan_shutdown_timeout", "timeout", shutdownTimeout.String())
		}
	}

	// Close the dashboard so the terminal is restored before the exit
	// summary prints.
	if o.tuiProgram != nil && !tuiExited {
		tui.SendQuit(o.tuiProgram)
		select {
		case <-tuiDone:
		case <-time.After(2 * time.Second):
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}

	if err := o.emitter.Close(); err != nil {
		o.logger.Warn("emitter_close_error", "error", err)
	}

	if err := o.device.Close(); err != nil {
		o.logger.Warn("device_close_error", "error", err)
	}

	// Print exit summary
	o.printExitSummary()

	return scanErr
}

// onCycleComplete folds each finished cycle into the run aggregates and
// pushes a fresh snapshot to the dashboard.
func (o *Orchestrator) onCycleComplete(report scan.CycleReport) {
	o.tracker.Record(report)
	if o.tuiProgram != nil {
		tui.SendStats(o.tuiProgram, o.tracker.Snapshot())
	}
}

// printExitSummary prints a summary of the metering run.
func (o *Orchestrator) printExitSummary() {
	summary := stats.FormatExitSummary(o.tracker.Snapshot(), stats.SummaryConfig{
		Plan:        o.config.Channels.String(),
		Backend:     o.config.Backend,
		MetricsAddr: o.config.MetricsAddr,
		Duration:    time.Since(o.startTime),
	})
	fmt.Print(summary)
}

// Scheduler returns the scan scheduler for external access.
func (o *Orchestrator) Scheduler() *scan.Scheduler {
	return o.scheduler
}

// Tracker returns the run statistics tracker for external access.
func (o *Orchestrator) Tracker() *stats.Tracker {
	return o.tracker
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}
