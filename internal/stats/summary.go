package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds the run-level facts the tracker does not know.
type SummaryConfig struct {
	// Plan is the canonical channel plan string.
	Plan string

	// Backend is the emission backend name.
	Backend string

	// MetricsAddr is the Prometheus metrics endpoint address.
	MetricsAddr string

	// Duration is the total run duration.
	Duration time.Duration
}

// FormatExitSummary renders the final snapshot for display at program exit.
func FormatExitSummary(snap Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                               godtm Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	// Run info
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Channel Plan:           %s\n", cfg.Plan)
	fmt.Fprintf(&b, "Backend:                %s\n", cfg.Backend)
	if snap.CyclesAborted > 0 {
		fmt.Fprintf(&b, "Scan Cycles:            %d (%d aborted)\n\n", snap.Cycles, snap.CyclesAborted)
	} else {
		fmt.Fprintf(&b, "Scan Cycles:            %d\n\n", snap.Cycles)
	}

	// Per-channel statistics
	if len(snap.Channels) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                              Channel Statistics\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  %-16s %16s %10s %14s\n", "Channel", "Last Rate", "Measured", "Bytes")
		b.WriteString("  " + strings.Repeat("─", 58) + "\n")
		for _, cs := range snap.Channels {
			fmt.Fprintf(&b, "  %-16s %16s %10d %14s\n",
				cs.Tag,
				FormatKbps(cs.LastRate),
				cs.Measurements,
				FormatBytes(cs.TotalBytes),
			)
		}
		fmt.Fprintf(&b, "\n  Total Bytes:          %s\n\n", FormatBytes(snap.BytesRead))
	}

	// Rate distribution
	if snap.ChannelsMeasured > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                              Rate Distribution\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatKbps(snap.RateP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatKbps(snap.RateP95))
		fmt.Fprintf(&b, "  Peak Channel:         %s\n", FormatKbps(snap.RateMax))
		fmt.Fprintf(&b, "  Peak Cycle:           %s\n\n", FormatKbps(snap.PeakCycleRate))
	}

	// Emission
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                                  Emission\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

	fmt.Fprintf(&b, "  Points Emitted:       %s\n", FormatNumber(snap.PointsEmitted))
	if snap.PointsDropped > 0 || snap.EmissionFailures > 0 {
		fmt.Fprintf(&b, "  Points Dropped:       %s\n", FormatNumber(snap.PointsDropped))
		fmt.Fprintf(&b, "  Failed Writes:        %d\n", snap.EmissionFailures)
	}
	b.WriteString("\n")

	// Metrics endpoint
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatKbps formats a kbit/s rate, switching to Mbit/s when large.
func FormatKbps(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.2f Mbit/s", rate/1000)
	}
	return fmt.Sprintf("%.2f kbit/s", rate)
}
