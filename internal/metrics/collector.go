// Package metrics provides Prometheus metrics for godtm.
//
// All metrics carry the godtm_ prefix and are registered once at startup.
// Per-channel series are labelled with the channel tag (e.g. "qam256.114"),
// which is bounded by the size of the channel plan.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Panel 1: Meter Overview
// =============================================================================

var (
	godtmInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "godtm_info",
			Help: "Information about the meter (value always 1)",
		},
		[]string{"version", "frequencies", "backend"},
	)

	godtmChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "godtm_channels",
			Help: "Number of channels in the scan plan",
		},
	)

	godtmCycleIntervalSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "godtm_cycle_interval_seconds",
			Help: "Configured pause between scan cycles",
		},
	)

	godtmChannelBudgetSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "godtm_channel_budget_seconds",
			Help: "Measurement window allotted to each channel",
		},
	)
)

// =============================================================================
// Panel 2: Scan Activity
// =============================================================================

var (
	godtmScanCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_scan_cycles_total",
			Help: "Total scan cycles completed",
		},
	)

	godtmChannelsMeasuredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_channels_measured_total",
			Help: "Total per-channel measurements completed",
		},
	)

	godtmBytesReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_bytes_read_total",
			Help: "Total bytes drained from the DVR device",
		},
	)

	godtmCycleDurationSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "godtm_cycle_duration_seconds",
			Help: "Wall-clock duration of the last scan cycle",
		},
	)

	godtmCycleOverrunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_cycle_overruns_total",
			Help: "Cycles that ran longer than the configured interval",
		},
	)

	godtmTotalRateKbps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "godtm_total_rate_kbps",
			Help: "Sum of channel rates from the last scan cycle",
		},
	)
)

// =============================================================================
// Panel 3: Per-Channel Rates
// =============================================================================

var (
	godtmChannelRateKbps = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "godtm_channel_rate_kbps",
			Help: "Last measured downstream rate per channel",
		},
		[]string{"channel"},
	)

	godtmChannelBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "godtm_channel_bytes_total",
			Help: "Total bytes read per channel",
		},
		[]string{"channel"},
	)

	godtmChannelRateDistribution = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "godtm_channel_rate_distribution_kbps",
			Help: "Distribution of measured channel rates",
			Buckets: []float64{
				1, 10, 100, 500,
				1000, 2500, 5000, 10000,
				25000, 50000,
			},
		},
	)
)

// =============================================================================
// Panel 4: Failures
// =============================================================================

var (
	godtmTuneFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "godtm_tune_failures_total",
			Help: "Tune failures by stage",
		},
		[]string{"stage"}, // "command_rejected", "status_unavailable", "no_lock"
	)

	godtmFilterFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "godtm_filter_failures_total",
			Help: "Demux filter failures by operation",
		},
		[]string{"op"}, // "start" | "stop"
	)

	godtmMeterInterruptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_meter_interruptions_total",
			Help: "Measurement windows cut short by a poll or read error",
		},
	)

	godtmCycleAbortsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_cycle_aborts_total",
			Help: "Scan cycles abandoned before all channels were visited",
		},
	)
)

// =============================================================================
// Panel 5: Emission
// =============================================================================

var (
	godtmPointsEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_points_emitted_total",
			Help: "Metric points delivered to the backend",
		},
	)

	godtmEmissionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_emission_failures_total",
			Help: "Failed batch writes to the backend",
		},
	)

	godtmPointsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "godtm_points_dropped_total",
			Help: "Metric points discarded after a failed batch write",
		},
	)
)

// =============================================================================
// Collector
// =============================================================================

// Collector manages all Prometheus metrics for the meter.
type Collector struct {
	version     string
	frequencies string
	backend     string
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version     string
	Frequencies string
	Backend     string
	Channels    int
	Interval    time.Duration
	Budget      time.Duration
}

// NewCollector creates a new metrics collector.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		version:     cfg.Version,
		frequencies: cfg.Frequencies,
		backend:     cfg.Backend,
	}

	registry.MustRegister(
		// Panel 1: Meter Overview
		godtmInfo,
		godtmChannels,
		godtmCycleIntervalSeconds,
		godtmChannelBudgetSeconds,

		// Panel 2: Scan Activity
		godtmScanCyclesTotal,
		godtmChannelsMeasuredTotal,
		godtmBytesReadTotal,
		godtmCycleDurationSeconds,
		godtmCycleOverrunsTotal,
		godtmTotalRateKbps,

		// Panel 3: Per-Channel Rates
		godtmChannelRateKbps,
		godtmChannelBytesTotal,
		godtmChannelRateDistribution,

		// Panel 4: Failures
		godtmTuneFailuresTotal,
		godtmFilterFailuresTotal,
		godtmMeterInterruptionsTotal,
		godtmCycleAbortsTotal,

		// Panel 5: Emission
		godtmPointsEmittedTotal,
		godtmEmissionFailuresTotal,
		godtmPointsDroppedTotal,
	)

	// Set initial values
	godtmInfo.WithLabelValues(cfg.Version, cfg.Frequencies, cfg.Backend).Set(1)
	godtmChannels.Set(float64(cfg.Channels))
	godtmCycleIntervalSeconds.Set(cfg.Interval.Seconds())
	godtmChannelBudgetSeconds.Set(cfg.Budget.Seconds())

	return c
}

// =============================================================================
// Recording Methods
// =============================================================================

// CycleCompleted records the outcome of a finished scan cycle.
func (c *Collector) CycleCompleted(duration time.Duration, totalRate float64) {
	godtmScanCyclesTotal.Inc()
	godtmCycleDurationSeconds.Set(duration.Seconds())
	godtmTotalRateKbps.Set(totalRate)
}

// CycleOverran records a cycle that exceeded the configured interval.
func (c *Collector) CycleOverran() {
	godtmCycleOverrunsTotal.Inc()
}

// CycleAborted records a cycle abandoned before visiting every channel.
func (c *Collector) CycleAborted() {
	godtmCycleAbortsTotal.Inc()
}

// ChannelMeasured records a completed per-channel measurement.
func (c *Collector) ChannelMeasured(channel string, bytes int64, rate float64) {
	godtmChannelsMeasuredTotal.Inc()
	godtmBytesReadTotal.Add(float64(bytes))
	godtmChannelRateKbps.WithLabelValues(channel).Set(rate)
	godtmChannelBytesTotal.WithLabelValues(channel).Add(float64(bytes))
	godtmChannelRateDistribution.Observe(rate)
}

// TuneFailed records a tune failure at the given stage.
func (c *Collector) TuneFailed(stage string) {
	godtmTuneFailuresTotal.WithLabelValues(stage).Inc()
}

// FilterFailed records a demux filter failure for the given operation.
func (c *Collector) FilterFailed(op string) {
	godtmFilterFailuresTotal.WithLabelValues(op).Inc()
}

// MeterInterrupted records a measurement window cut short by an error.
func (c *Collector) MeterInterrupted() {
	godtmMeterInterruptionsTotal.Inc()
}

// PointsEmitted records metric points delivered to the backend.
func (c *Collector) PointsEmitted(count int) {
	godtmPointsEmittedTotal.Add(float64(count))
}

// EmissionFailed records a failed batch write and the points lost with it.
func (c *Collector) EmissionFailed(dropped int) {
	godtmEmissionFailuresTotal.Inc()
	godtmPointsDroppedTotal.Add(float64(dropped))
}

// Backend returns the configured emission backend name.
func (c *Collector) Backend() string {
	return c.backend
}
