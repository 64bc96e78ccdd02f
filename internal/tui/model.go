package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/godtm/godtm/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// StatsMsg carries an updated statistics snapshot.
type StatsMsg struct {
	Snapshot stats.Snapshot
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	channels    int
	plan        string
	backend     string
	metricsAddr string

	// Current state
	snap       stats.Snapshot
	haveStats  bool
	startTime  time.Time
	lastUpdate time.Time

	// Display options
	width  int
	height int

	// Stats source (for fetching updates)
	source StatsSource

	// Quit flag
	quitting bool
}

// StatsSource provides run statistics snapshots.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Config holds TUI configuration.
type Config struct {
	Channels    int
	Plan        string
	Backend     string
	MetricsAddr string
	Source      StatsSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		channels:    cfg.Channels,
		plan:        cfg.Plan,
		backend:     cfg.Backend,
		metricsAddr: cfg.MetricsAddr,
		source:      cfg.Source,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	// Note: tea.WithAltScreen() is passed when creating the program,
	// so we don't need tea.EnterAltScreen here.
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		// Fetch the latest snapshot
		if m.source != nil {
			m.snap = m.source.Snapshot()
			m.haveStats = true
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case StatsMsg:
		m.snap = msg.Snapshot
		m.haveStats = true
		m.lastUpdate = time.Now()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the meter started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Channels returns the number of planned channels.
func (m Model) Channels() int {
	return m.channels
}

// MeasuredChannels returns the channel count of the last completed cycle.
func (m Model) MeasuredChannels() int {
	return m.snap.LastCycleMeasured
}

// DropRate returns the fraction of metric points lost on emission.
func (m Model) DropRate() float64 {
	total := m.snap.PointsEmitted + m.snap.PointsDropped
	if total == 0 {
		return 0
	}
	return float64(m.snap.PointsDropped) / float64(total)
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendStats sends a stats update to the TUI.
func SendStats(p *tea.Program, snap stats.Snapshot) {
	if p != nil {
		p.Send(StatsMsg{Snapshot: snap})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatNumber formats a number with K/M suffixes.
func formatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// formatBytes formats bytes with KB/MB/GB suffixes.
func formatBytes(n int64) string {
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

// formatKbps formats a kbit/s rate, switching to Mbit/s above 1000.
func formatKbps(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.2f Mbit/s", rate/1000)
	}
	return fmt.Sprintf("%.2f kbit/s", rate)
}
