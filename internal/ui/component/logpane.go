package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/lp-hedger/internal/logger"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/style"
)

const logPaneDepth = 100 // entries pulled from the ring per refresh

// LogFilter defines what log levels to show
type LogFilter struct {
	ShowError bool
	ShowWarn  bool
	ShowInfo  bool
	ShowDebug bool
}

// LogPane tails the in-memory log ring inside a scrollable viewport.
// While following, every refresh pins the view to the newest entry;
// scrolling up detaches until the user returns to the bottom.
type LogPane struct {
	buffer   *logger.LogBuffer
	viewport viewport.Model
	filter   LogFilter
	follow   bool

	timestampStyle lipgloss.Style
	errorStyle     lipgloss.Style
	warnStyle      lipgloss.Style
	infoStyle      lipgloss.Style
	debugStyle     lipgloss.Style
}

// NewLogPane creates a log pane reading from the given ring buffer
func NewLogPane(buffer *logger.LogBuffer) *LogPane {
	palette := style.DefaultPalette()

	return &LogPane{
		buffer:   buffer,
		viewport: viewport.New(60, 6),
		follow:   true,
		filter: LogFilter{
			ShowError: true,
			ShowWarn:  true,
			ShowInfo:  true,
			ShowDebug: false,
		},

		timestampStyle: lipgloss.NewStyle().Foreground(palette.TextMuted),
		errorStyle:     lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
		warnStyle:      lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
		infoStyle:      lipgloss.NewStyle().Foreground(palette.Info),
		debugStyle:     lipgloss.NewStyle().Foreground(palette.TextMuted),
	}
}

// SetSize sets the viewport dimensions
func (lp *LogPane) SetSize(width, height int) {
	if height < 2 {
		height = 2
	}
	lp.viewport.Width = width
	lp.viewport.Height = height
	lp.Refresh()
}

// Refresh re-reads the ring buffer and rebuilds the viewport content
func (lp *LogPane) Refresh() {
	if lp.buffer == nil {
		lp.viewport.SetContent("No log buffer available")
		return
	}

	entries := lp.buffer.GetRecentLogs(logPaneDepth)

	var lines []string
	for _, entry := range entries {
		if lp.shouldShow(entry) {
			lines = append(lines, lp.formatEntry(entry))
		}
	}

	if len(lines) == 0 {
		lp.viewport.SetContent("No logs match current filter")
		return
	}

	lp.viewport.SetContent(strings.Join(lines, "\n"))
	if lp.follow {
		lp.viewport.GotoBottom()
	}
}

// ToggleLevel flips the visibility of one log level
func (lp *LogPane) ToggleLevel(level string) {
	switch level {
	case "error":
		lp.filter.ShowError = !lp.filter.ShowError
	case "warn":
		lp.filter.ShowWarn = !lp.filter.ShowWarn
	case "info":
		lp.filter.ShowInfo = !lp.filter.ShowInfo
	case "debug":
		lp.filter.ShowDebug = !lp.filter.ShowDebug
	}
	lp.Refresh()
}

// ScrollUp scrolls one line back and detaches from the tail
func (lp *LogPane) ScrollUp() {
	lp.follow = false
	lp.viewport.LineUp(1)
}

// ScrollDown scrolls one line forward, re-attaching at the bottom
func (lp *LogPane) ScrollDown() {
	lp.viewport.LineDown(1)
	if lp.viewport.AtBottom() {
		lp.follow = true
	}
}

// Following reports whether the pane is pinned to the newest entry
func (lp *LogPane) Following() bool {
	return lp.follow
}

// FilterStatus returns the active levels for the pane title
func (lp *LogPane) FilterStatus() string {
	var active []string
	if lp.filter.ShowError {
		active = append(active, "error")
	}
	if lp.filter.ShowWarn {
		active = append(active, "warn")
	}
	if lp.filter.ShowInfo {
		active = append(active, "info")
	}
	if lp.filter.ShowDebug {
		active = append(active, "debug")
	}
	if len(active) == 0 {
		return "none"
	}
	return strings.Join(active, "+")
}

// View renders the viewport content
func (lp *LogPane) View() string {
	return lp.viewport.View()
}

// shouldShow applies the level filter to one entry
func (lp *LogPane) shouldShow(entry logger.LogEntry) bool {
	switch strings.ToLower(entry.Level) {
	case "error", "fatal", "panic":
		return lp.filter.ShowError
	case "warn", "warning":
		return lp.filter.ShowWarn
	case "info":
		return lp.filter.ShowInfo
	case "debug":
		return lp.filter.ShowDebug
	default:
		return lp.filter.ShowInfo
	}
}

// formatEntry formats one entry as "HH:MM:SS message"
func (lp *LogPane) formatEntry(entry logger.LogEntry) string {
	timestamp := lp.timestampStyle.Render(entry.Timestamp.Format("15:04:05"))

	var styled string
	switch strings.ToLower(entry.Level) {
	case "error", "fatal", "panic":
		styled = lp.errorStyle.Render(entry.Message)
	case "warn", "warning":
		styled = lp.warnStyle.Render(entry.Message)
	case "debug":
		styled = lp.debugStyle.Render(entry.Message)
	default:
		styled = lp.infoStyle.Render(entry.Message)
	}

	return fmt.Sprintf("%s %s", timestamp, styled)
}
