package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderDashboard renders the scan dashboard.
func (m Model) renderDashboard() string {
	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Scan activity
	sections = append(sections, m.renderScanStats())

	// Per-channel table
	sections = append(sections, m.renderChannelTable())

	// Rate distribution (only once something was measured)
	if m.snap.ChannelsMeasured > 0 {
		sections = append(sections, m.renderRateStats())
	}

	// Emission
	sections = append(sections, m.renderEmission())

	// Footer
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	// Emission health indicator
	emissionLabel := GetEmissionLabel(m.DropRate())

	// Build header line
	header := fmt.Sprintf(
		" godtm │ %s │ Channels: %d/%d │ Elapsed: %s ",
		emissionLabel,
		m.MeasuredChannels(),
		m.channels,
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Scan Activity
// =============================================================================

func (m Model) renderScanStats() string {
	s := m.snap

	// Cycle counter with abort annotation
	cycleStyle := valueStyle
	cycles := fmt.Sprintf("%d", s.Cycles)
	if s.CyclesAborted > 0 {
		cycleStyle = valueWarnStyle
		cycles = fmt.Sprintf("%d (%d aborted)", s.Cycles, s.CyclesAborted)
	}

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Scan Cycles:"),
			cycleStyle.Render(cycles),
		),
		RenderKeyValue("Channels Measured", formatNumber(s.ChannelsMeasured)),
		RenderKeyValue("Bytes Read", formatBytes(s.BytesRead)),
	}

	if s.Cycles > 0 {
		lastCycle := fmt.Sprintf("%s in %s (%d ch)",
			formatKbps(s.LastCycleRate),
			s.LastCycleDuration.Round(time.Second),
			s.LastCycleMeasured,
		)
		rows = append(rows,
			RenderKeyValue("Last Cycle", lastCycle),
			RenderKeyValue("Peak Cycle", formatKbps(s.PeakCycleRate)),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Scan Activity")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Channel Table
// =============================================================================

func (m Model) renderChannelTable() string {
	if !m.haveStats || len(m.snap.Channels) == 0 {
		return boxStyle.Width(m.width - 2).Render(
			dimStyle.Render("Waiting for the first scan cycle..."),
		)
	}

	// Table header
	header := tableHeaderStyle.Render(
		fmt.Sprintf("%-16s %14s %10s %12s",
			"Channel", "Last Rate", "Measured", "Bytes"),
	)

	// Table rows (limit to fit screen)
	maxRows := m.height - 16
	if maxRows < 4 {
		maxRows = 4
	}

	var rows []string
	for i, ch := range m.snap.Channels {
		if i >= maxRows {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("... and %d more channels", len(m.snap.Channels)-maxRows)))
			break
		}

		rowStyle := tableRowEvenStyle
		if i%2 == 1 {
			rowStyle = tableRowOddStyle
		}

		row := fmt.Sprintf("%-16s %14s %10d %12s",
			ch.Tag,
			formatKbps(ch.LastRate),
			ch.Measurements,
			formatBytes(ch.TotalBytes),
		)
		rows = append(rows, rowStyle.Render(row))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{
			sectionHeaderStyle.Render("Channels"),
			header,
		}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Rate Distribution
// =============================================================================

func (m Model) renderRateStats() string {
	s := m.snap

	rows := []string{
		RenderKeyValue("P50 (median)", formatKbps(s.RateP50)),
		RenderKeyValue("P95", formatKbps(s.RateP95)),
		RenderKeyValue("Peak Channel", formatKbps(s.RateMax)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Rate Distribution")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Emission
// =============================================================================

func (m Model) renderEmission() string {
	s := m.snap

	rows := []string{
		RenderKeyValue("Backend", m.backend),
		RenderKeyValue("Points Emitted", formatNumber(s.PointsEmitted)),
	}

	if s.PointsDropped > 0 {
		rows = append(rows,
			lipgloss.JoinHorizontal(lipgloss.Left,
				labelStyle.Render("Points Dropped:"),
				valueBadStyle.Render(formatNumber(s.PointsDropped)),
			),
		)
	}
	if s.EmissionFailures > 0 {
		rows = append(rows,
			lipgloss.JoinHorizontal(lipgloss.Left,
				labelStyle.Render("Failed Writes:"),
				valueBadStyle.Render(fmt.Sprintf("%d", s.EmissionFailures)),
			),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Emission")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	// Keyboard shortcuts
	shortcuts := []string{
		"q: quit",
		"r: refresh",
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := dimStyle.Render("Metrics: http://" + m.metricsAddr + "/metrics")

	// Pad to fill width
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}
