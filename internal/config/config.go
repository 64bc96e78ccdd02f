// Package config provides configuration management for godtm.
package config

import (
	"time"

	"github.com/godtm/godtm/internal/channel"
)

// Config holds all configuration options for the traffic meter.
type Config struct {
	// DVB device selection
	Adapter int `json:"adapter"`
	Tuner   int `json:"tuner"`

	// Scan plan
	Frequencies string        `json:"frequencies"` // raw plan, e.g. "114:256,120:64"
	Channels    channel.Plan  `json:"-"`           // resolved by Validate
	Step        time.Duration `json:"step"`        // total scan time per cycle
	Interval    time.Duration `json:"interval"`    // pause between cycle starts
	LockTime    time.Duration `json:"locktime"`    // frontend lock settle time

	// Backend selection
	Backend string `json:"backend"` // influxdb, graphite

	// InfluxDB
	InfluxURL      string `json:"influx_url"`
	InfluxUsername string `json:"influx_username"`
	InfluxPassword string `json:"influx_password"`
	InfluxDatabase string `json:"influx_database"`

	// Graphite
	GraphiteHost   string `json:"graphite_host"`
	GraphitePort   int    `json:"graphite_port"`
	GraphitePrefix string `json:"graphite_prefix"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	TUIEnabled  bool   `json:"tui"`
	Debug       bool   `json:"debug"`
	LogFormat   string `json:"log_format"` // json, text

	// Startup
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// DVB: first adapter, first tuner
		Adapter: 0,
		Tuner:   0,

		// Scan plan
		Frequencies: "114:256",
		Step:        60 * time.Second,
		Interval:    300 * time.Second,
		LockTime:    1 * time.Second,

		// Backend
		Backend:        "influxdb",
		InfluxURL:      "http://localhost:8086",
		InfluxUsername: "influx",
		InfluxPassword: "",
		InfluxDatabase: "godtm",
		GraphiteHost:   "localhost",
		GraphitePort:   2003,
		GraphitePrefix: "godtm",

		// Observability
		MetricsAddr: "0.0.0.0:9753",
		TUIEnabled:  false,
		Debug:       false,
		LogFormat:   "text",

		// Startup
		SkipPreflight: false,
	}
}

// Budget returns the per-channel measurement budget, step divided evenly
// across the resolved channel list. Returns 0 before Validate has run.
func (c *Config) Budget() time.Duration {
	if len(c.Channels) == 0 {
		return 0
	}
	return c.Step / time.Duration(len(c.Channels))
}
