package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/style"
)

// StatusHeader is the dashboard's top strip: bot state, data mode, LP
// value and the latest delta verdict at a glance.
type StatusHeader struct {
	running    bool
	mode       string
	uptime     time.Duration
	totalValue float64

	hasDelta   bool
	netDelta   float64
	action     string
	confidence float64
	urgency    string

	style StatusHeaderStyle
	width int
}

// StatusHeaderStyle contains all styling for the status header
type StatusHeaderStyle struct {
	container   lipgloss.Style
	title       lipgloss.Style
	mode        lipgloss.Style
	running     lipgloss.Style
	stopped     lipgloss.Style
	value       lipgloss.Style
	deltaBuy    lipgloss.Style
	deltaSell   lipgloss.Style
	deltaHold   lipgloss.Style
	deltaAbsent lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		mode: "sample",
		style: StatusHeaderStyle{
			container: lipgloss.NewStyle().
				Background(palette.Background).
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2).
				MarginBottom(1),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			mode: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			running: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			stopped: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),

			value: lipgloss.NewStyle().
				Foreground(palette.Text),

			deltaBuy: lipgloss.NewStyle().
				Foreground(palette.Buy).
				Bold(true),

			deltaSell: lipgloss.NewStyle().
				Foreground(palette.Sell).
				Bold(true),

			deltaHold: lipgloss.NewStyle().
				Foreground(palette.Hold),

			deltaAbsent: lipgloss.NewStyle().
				Foreground(palette.TextMuted),
		},
	}
}

// SetRunning updates the bot running state
func (sh *StatusHeader) SetRunning(running bool) {
	sh.running = running
}

// SetMode updates the data source mode display
func (sh *StatusHeader) SetMode(mode string) {
	sh.mode = mode
}

// SetUptime updates the uptime display
func (sh *StatusHeader) SetUptime(uptime time.Duration) {
	sh.uptime = uptime
}

// SetTotalValue updates the total LP value display
func (sh *StatusHeader) SetTotalValue(value float64) {
	sh.totalValue = value
}

// SetDecision updates the delta verdict shown in the header.
func (sh *StatusHeader) SetDecision(netDelta, confidence float64, action, urgency string) {
	sh.hasDelta = true
	sh.netDelta = netDelta
	sh.confidence = confidence
	sh.action = action
	sh.urgency = urgency
}

// ClearDecision removes the delta verdict, shown until the first
// calculation lands.
func (sh *StatusHeader) ClearDecision() {
	sh.hasDelta = false
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
	sh.style.container = sh.style.container.Width(width - 4)
}

// View renders the status header
func (sh *StatusHeader) View() string {
	title := sh.style.title.Render("⚡ LP Hedger")
	mode := sh.style.mode.Render(fmt.Sprintf("mode: %s", sh.mode))
	state := sh.renderRunState()
	value := sh.style.value.Render(fmt.Sprintf("LP: $%.2f", sh.totalValue))
	delta := sh.renderDelta()
	uptime := sh.style.mode.Render(fmt.Sprintf("up %s", formatUptime(sh.uptime)))

	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		title,
		" | ",
		mode,
		" | ",
		state,
		" | ",
		value,
		" | ",
		delta,
		" | ",
		uptime,
	)

	return sh.style.container.Render(content)
}

// renderRunState renders the scheduler state with emoji
func (sh *StatusHeader) renderRunState() string {
	if sh.running {
		return sh.style.running.Render("🟢 RUNNING")
	}
	return sh.style.stopped.Render("🔴 STOPPED")
}

// renderDelta renders the latest delta verdict, colored by direction
func (sh *StatusHeader) renderDelta() string {
	if !sh.hasDelta {
		return sh.style.deltaAbsent.Render("Δ pending")
	}

	text := fmt.Sprintf("Δ $%.2f %s (%.0f%%)", sh.netDelta, sh.action, sh.confidence*100)
	if sh.urgency != "" && sh.action != "hold" {
		text += " " + sh.urgency
	}

	switch sh.action {
	case "buy":
		return sh.style.deltaBuy.Render(text)
	case "sell":
		return sh.style.deltaSell.Render(text)
	default:
		return sh.style.deltaHold.Render(text)
	}
}

// GetHeight returns the component height for layout calculations
func (sh *StatusHeader) GetHeight() int {
	return 3 // Border + padding + content
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
