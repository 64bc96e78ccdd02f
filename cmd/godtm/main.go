// Package main provides the godtm CLI entry point.
//
// godtm measures the downstream data rate of EuroDOCSIS 3.0 channels with a
// DVB-C tuner and ships the readings to InfluxDB or Graphite.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/common/version"

	"github.com/godtm/godtm/internal/config"
	"github.com/godtm/godtm/internal/logging"
	"github.com/godtm/godtm/internal/orchestrator"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags (--version is handled by the parser)
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When the TUI is enabled, suppress logs to avoid interfering with
	// dashboard rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Debug)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Log startup
	logger.Info("starting",
		"version", version.Info(),
		"adapter", cfg.Adapter,
		"tuner", cfg.Tuner,
		"channels", len(cfg.Channels),
		"step", cfg.Step.String(),
		"interval", cfg.Interval.String(),
		"backend", cfg.Backend,
		"metrics_addr", cfg.MetricsAddr,
	)

	// Print startup banner
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	// Create and run the orchestrator
	orch, err := orchestrator.New(cfg, logger)
	if err != nil {
		logger.Error("startup_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Startup error: %v\n", err)
		return 1
	}

	if err := orch.Run(context.Background()); err != nil {
		logger.Error("run_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                               godtm                               ║")
	fmt.Println("║       EuroDOCSIS 3.0 Downstream Traffic Metering over DVB-C       ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Device:      /dev/dvb/adapter%d (frontend%d, demux%d, dvr%d)\n",
		cfg.Adapter, cfg.Tuner, cfg.Tuner, cfg.Tuner)
	fmt.Printf("  Channels:    %s\n", cfg.Channels)
	fmt.Printf("  Budget:      %s per channel, %s step, every %s\n",
		cfg.Budget(), cfg.Step, cfg.Interval)
	fmt.Printf("  Backend:     %s\n", backendTarget(cfg))
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// backendTarget describes where points go, without leaking credentials.
func backendTarget(cfg *config.Config) string {
	switch cfg.Backend {
	case "influxdb":
		return fmt.Sprintf("influxdb (%s, db %s)", cfg.InfluxURL, cfg.InfluxDatabase)
	case "graphite":
		return fmt.Sprintf("graphite (%s:%d, prefix %s)", cfg.GraphiteHost, cfg.GraphitePort, cfg.GraphitePrefix)
	default:
		return cfg.Backend
	}
}
