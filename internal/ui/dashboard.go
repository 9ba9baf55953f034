// Package ui renders the terminal dashboard. The dashboard owns no bot
// state of its own: every tick it re-reads the state store and the
// scheduler bookkeeping, so a repaint can never disagree with what the
// HTTP API would report.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/lp-hedger/internal/config"
	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
	"github.com/rovshanmuradov/lp-hedger/internal/logger"
	"github.com/rovshanmuradov/lp-hedger/internal/scheduler"
	"github.com/rovshanmuradov/lp-hedger/internal/state"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/component"
	"github.com/rovshanmuradov/lp-hedger/internal/ui/style"
)

// BotController is the slice of the bot service the dashboard drives.
type BotController interface {
	Running() bool
	Mode() string
	Uptime() time.Duration
	Start() (bool, error)
	Stop() bool
	GetConfig() *config.Config
	GetStore() *state.Store
	TaskStatus() []scheduler.TaskSnapshot
}

// Dashboard is the root bubbletea model: status header, delta gauge,
// positions and tasks tables and the log tail, polled on a fixed tick.
type Dashboard struct {
	bot    BotController
	keyMap KeyMap

	header         *component.StatusHeader
	gauge          *component.DeltaGauge
	trend          *component.Sparkline
	positionsTable *component.Table
	tasksTable     *component.Table
	logs           *component.LogPane
	help           *component.HelpBar

	focus           Focus
	helpExpanded    bool
	refreshInterval time.Duration
	lastUpdate      time.Time
	reason          string
	notice          string

	width  int
	height int

	noticeOKStyle  lipgloss.Style
	noticeErrStyle lipgloss.Style
	reasonStyle    lipgloss.Style
	footerStyle    lipgloss.Style
}

// NewDashboard builds the dashboard over a bot service and the log ring
// its logger writes into.
func NewDashboard(bot BotController, buffer *logger.LogBuffer) *Dashboard {
	palette := style.DefaultPalette()

	positionsTable := component.NewTable().
		AddColumn("NFT", 9, lipgloss.Right).
		AddColumn("Pair", 12, lipgloss.Left).
		AddColumn("Value", 12, lipgloss.Right).
		AddColumn("Range", 7, lipgloss.Center).
		AddColumn("Fees", 10, lipgloss.Right).
		SetSelectable(true).
		SetZebra(true)

	tasksTable := component.NewTable().
		AddColumn("Task", 16, lipgloss.Left).
		AddColumn("State", 6, lipgloss.Center).
		AddColumn("Every", 7, lipgloss.Right).
		AddColumn("Runs", 6, lipgloss.Right).
		AddColumn("Errs", 5, lipgloss.Right).
		AddColumn("Last", 9, lipgloss.Right).
		AddColumn("Avg", 8, lipgloss.Right).
		SetSelectable(true).
		SetZebra(true)

	d := &Dashboard{
		bot:    bot,
		keyMap: DefaultKeyMap(),

		header:         component.NewStatusHeader(),
		gauge:          component.NewDeltaGauge(24),
		trend:          component.NewSparkline(24),
		positionsTable: positionsTable,
		tasksTable:     tasksTable,
		logs:           component.NewLogPane(buffer),
		help:           component.NewHelpBar(),

		focus:           FocusPositions,
		refreshInterval: 2 * time.Second,

		noticeOKStyle: lipgloss.NewStyle().
			Foreground(palette.Success).
			Padding(0, 1),

		noticeErrStyle: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true).
			Padding(0, 1),

		reasonStyle: lipgloss.NewStyle().
			Foreground(palette.TextSecondary),

		footerStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 1),
	}

	d.gauge.SetThreshold(bot.GetConfig().Hedging.DeltaThreshold)
	d.header.SetMode(bot.Mode())
	d.help.SetBindings(d.keyMap.PaneHelp(d.focus))
	d.refresh()

	return d
}

// Init arms the poll tick
func (d *Dashboard) Init() tea.Cmd {
	return d.tickCmd()
}

// Update handles dashboard updates
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.layout()

	case TickMsg:
		d.refresh()
		d.layout()
		return d, d.tickCmd()

	case ControlResultMsg:
		switch {
		case msg.Err != nil:
			d.notice = d.noticeErrStyle.Render("✗ " + msg.Err.Error())
		case msg.Started:
			d.notice = d.noticeOKStyle.Render("✓ Bot started")
		case msg.Stopped:
			d.notice = d.noticeOKStyle.Render("✓ Bot stopped")
		default:
			d.notice = d.noticeOKStyle.Render("Bot state unchanged")
		}
		d.refresh()

	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	return d, nil
}

// handleKey routes keyboard input, navigation keys going to the focused
// pane.
func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keyMap.Quit):
		return d, tea.Quit

	case key.Matches(msg, d.keyMap.Tab):
		d.focus = d.focus.Next()
		d.updateHelp()

	case key.Matches(msg, d.keyMap.ShiftTab):
		d.focus = d.focus.Prev()
		d.updateHelp()

	case key.Matches(msg, d.keyMap.Help):
		d.helpExpanded = !d.helpExpanded
		d.updateHelp()

	case key.Matches(msg, d.keyMap.StartStop):
		return d, d.toggleBotCmd()

	case key.Matches(msg, d.keyMap.Refresh):
		d.refresh()
		d.layout()

	case key.Matches(msg, d.keyMap.Up):
		switch d.focus {
		case FocusPositions:
			d.positionsTable.MoveUp()
		case FocusTasks:
			d.tasksTable.MoveUp()
		case FocusLogs:
			d.logs.ScrollUp()
		}

	case key.Matches(msg, d.keyMap.Down):
		switch d.focus {
		case FocusPositions:
			d.positionsTable.MoveDown()
		case FocusTasks:
			d.tasksTable.MoveDown()
		case FocusLogs:
			d.logs.ScrollDown()
		}

	case key.Matches(msg, d.keyMap.FilterInfo):
		d.logs.ToggleLevel("info")
	case key.Matches(msg, d.keyMap.FilterWarn):
		d.logs.ToggleLevel("warn")
	case key.Matches(msg, d.keyMap.FilterError):
		d.logs.ToggleLevel("error")
	case key.Matches(msg, d.keyMap.FilterDebug):
		d.logs.ToggleLevel("debug")
	}

	return d, nil
}

// toggleBotCmd starts or stops the bot off the render loop
func (d *Dashboard) toggleBotCmd() tea.Cmd {
	bot := d.bot
	if bot.Running() {
		return func() tea.Msg {
			return ControlResultMsg{Stopped: bot.Stop()}
		}
	}
	return func() tea.Msg {
		started, err := bot.Start()
		return ControlResultMsg{Started: started, Err: err}
	}
}

// tickCmd schedules the next poll
func (d *Dashboard) tickCmd() tea.Cmd {
	return tea.Tick(d.refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// refresh re-reads bot state into every component
func (d *Dashboard) refresh() {
	palette := style.DefaultPalette()

	d.header.SetRunning(d.bot.Running())
	d.header.SetMode(d.bot.Mode())
	d.header.SetUptime(d.bot.Uptime())

	store := d.bot.GetStore()
	positions, _, _ := store.Positions()
	d.header.SetTotalValue(hedge.TotalValue(positions))

	rows := make([][]string, 0, len(positions))
	for _, p := range positions {
		rangeCell := "in"
		if !p.InRange {
			rangeCell = "out"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.NFTID),
			fmt.Sprintf("%s/%s", p.Token0.Symbol, p.Token1.Symbol),
			fmt.Sprintf("$%.2f", p.TotalValueUSD),
			rangeCell,
			fmt.Sprintf("$%.2f", uncollectedFeesUSD(p)),
		})
	}
	d.positionsTable.SetRows(rows)
	for i, p := range positions {
		if !p.InRange {
			d.positionsTable.SetRowStyle(i, lipgloss.NewStyle().
				Foreground(palette.Warning).
				Padding(0, 1))
		}
	}

	if snap, rec, ok := store.Decision(); ok {
		d.header.SetDecision(snap.NetDelta, snap.Confidence, string(rec.Action), string(rec.Urgency))
		d.gauge.SetValue(snap.NetDelta)
		d.trend.Push(snap.NetDelta)
		d.reason = rec.Reason
	} else {
		d.header.ClearDecision()
		d.reason = ""
	}

	d.tasksTable.SetRows(taskRows(d.bot.TaskStatus()))
	d.logs.Refresh()
	d.lastUpdate = time.Now()
}

// taskRows formats scheduler snapshots for the tasks table
func taskRows(snaps []scheduler.TaskSnapshot) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, snap := range snaps {
		state := "idle"
		if snap.Running {
			state = "●"
		}
		lastRun := "never"
		if snap.LastRun > 0 {
			lastRun = time.Unix(int64(snap.LastRun), 0).Format("15:04:05")
		}
		rows = append(rows, []string{
			snap.Name,
			state,
			fmt.Sprintf("%.0fs", snap.Interval),
			fmt.Sprintf("%d", snap.SuccessCount),
			fmt.Sprintf("%d", snap.ErrorCount),
			lastRun,
			fmt.Sprintf("%.0fms", snap.AverageDuration*1000),
		})
	}
	return rows
}

// uncollectedFeesUSD values both fee sides of a position at the latest
// known prices.
func uncollectedFeesUSD(p hedge.Position) float64 {
	return p.UncollectedFees0*p.Token0.PriceUSD + p.UncollectedFees1*p.Token1.PriceUSD
}

// updateHelp rebuilds the help bar for the current focus
func (d *Dashboard) updateHelp() {
	if d.helpExpanded {
		var all []key.Binding
		for _, group := range d.keyMap.FullHelp() {
			all = append(all, group...)
		}
		d.help.SetBindings(all)
		return
	}
	d.help.SetBindings(d.keyMap.PaneHelp(d.focus))
}

// layout distributes the terminal height; the log pane absorbs whatever
// the fixed panes leave over.
func (d *Dashboard) layout() {
	if d.width == 0 || d.height == 0 {
		return
	}

	d.header.SetWidth(d.width)
	d.help.SetWidth(d.width)

	gaugeWidth := d.width / 3
	if gaugeWidth > 32 {
		gaugeWidth = 32
	}
	if gaugeWidth < 10 {
		gaugeWidth = 10
	}
	d.gauge.SetWidth(gaugeWidth)
	d.trend.SetWidth(gaugeWidth)

	// Pane frames are 2 rows of border plus a title line; tables add a
	// header row and a separator. The final 4 covers notice and help bar.
	used := d.header.GetHeight() + 1
	used += 5
	used += d.positionsTable.RowCount() + 5
	used += d.tasksTable.RowCount() + 5
	used += 4

	logHeight := d.height - used - 3
	if logHeight < 3 {
		logHeight = 3
	}
	d.logs.SetSize(d.width-6, logHeight)
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 || d.height == 0 {
		return "Initializing..."
	}

	var content strings.Builder

	content.WriteString(d.header.View())
	content.WriteString("\n")

	content.WriteString(d.renderDeltaPane())
	content.WriteString("\n")

	positionsTitle := fmt.Sprintf("Positions (%d, %d in range)",
		d.positionsTable.RowCount(), d.inRangeCount())
	content.WriteString(d.renderPane(positionsTitle, d.positionsTable.View(), d.focus == FocusPositions))
	content.WriteString("\n")

	content.WriteString(d.renderPane("Tasks", d.tasksTable.View(), d.focus == FocusTasks))
	content.WriteString("\n")

	logsTitle := fmt.Sprintf("Logs [%s]", d.logs.FilterStatus())
	if !d.logs.Following() {
		logsTitle += " (scrolled)"
	}
	content.WriteString(d.renderPane(logsTitle, d.logs.View(), d.focus == FocusLogs))
	content.WriteString("\n")

	if d.notice != "" {
		content.WriteString(d.notice)
		content.WriteString("\n")
	}
	content.WriteString(d.footerStyle.Render(fmt.Sprintf("Updated: %s", d.lastUpdate.Format("15:04:05"))))

	content.WriteString(d.help.View())

	return content.String()
}

// renderDeltaPane renders the gauge, trend and reason line
func (d *Dashboard) renderDeltaPane() string {
	gaugeLine := d.gauge.View() + "  " + d.reasonStyle.Render(d.gauge.Status())
	trendLine := d.trend.View() + " " + d.trend.Trend()

	body := gaugeLine + "\n" + trendLine
	if d.reason != "" {
		body += "\n" + d.reasonStyle.Render(d.reason)
	}

	return d.renderPane("Delta", body, false)
}

// renderPane frames a pane with a title, the border marking focus
func (d *Dashboard) renderPane(title, body string, focused bool) string {
	palette := style.DefaultPalette()

	borderColor := palette.TextMuted
	if focused {
		borderColor = palette.Primary
	}

	titleLine := lipgloss.NewStyle().
		Foreground(palette.Info).
		Bold(true).
		Render(title)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(d.width - 2).
		Render(titleLine + "\n" + body)
}

// inRangeCount counts positions currently in range from the store
func (d *Dashboard) inRangeCount() int {
	positions, _, _ := d.bot.GetStore().Positions()
	return hedge.CountInRange(positions)
}
