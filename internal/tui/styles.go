// Package tui provides a live terminal dashboard for the downstream meter.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It displays real-time scan state including:
// - Cycle and channel counters
// - Per-channel rates and byte totals
// - Rate distribution percentiles
// - Emission backend health
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	// Primary colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	// Status colors
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	// Neutral colors
	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// =============================================================================
// Status Indicator Styles
// =============================================================================

var (
	statusOK = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	statusError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	// Box/panel styles
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	// Section header style
	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	// Footer style
	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// Value Styles
// =============================================================================

var (
	// Numeric value styles
	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	valueWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	// Label styles
	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(20)
)

// =============================================================================
// Table Styles
// =============================================================================

var (
	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorBorder)

	tableRowEvenStyle = lipgloss.NewStyle().
				Foreground(colorText)

	tableRowOddStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted)
)

// =============================================================================
// Emission Status Indicator
// =============================================================================

// EmissionStatus represents the health of the emission pipeline.
type EmissionStatus int

const (
	EmissionStatusOK EmissionStatus = iota
	EmissionStatusDegraded
	EmissionStatusSeverelyDegraded
)

// GetEmissionStatus returns the status based on the fraction of points lost.
func GetEmissionStatus(dropRate float64) EmissionStatus {
	switch {
	case dropRate > 0.10: // >10% dropped
		return EmissionStatusSeverelyDegraded
	case dropRate > 0.0: // Any drops
		return EmissionStatusDegraded
	default:
		return EmissionStatusOK
	}
}

// GetEmissionLabel returns a styled label based on the drop rate.
func GetEmissionLabel(dropRate float64) string {
	switch GetEmissionStatus(dropRate) {
	case EmissionStatusSeverelyDegraded:
		return statusError.Render("● Emission (severely degraded)")
	case EmissionStatusDegraded:
		return statusWarning.Render("● Emission (degraded)")
	default:
		return statusOK.Render("● Emission")
	}
}

// GetEmissionStyle returns the appropriate style for the emission status.
func GetEmissionStyle(status EmissionStatus) lipgloss.Style {
	switch status {
	case EmissionStatusSeverelyDegraded:
		return statusError
	case EmissionStatusDegraded:
		return statusWarning
	default:
		return statusOK
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}
