package ui

import "time"

// Tea message types for dashboard communication

// TickMsg drives one poll cycle: the dashboard re-reads the bot state
// and re-arms the next tick.
type TickMsg struct {
	Time time.Time
}

// ControlResultMsg reports the outcome of a start/stop toggle issued
// from the keyboard.
type ControlResultMsg struct {
	Started bool
	Stopped bool
	Err     error
}

// Focus identifies which dashboard pane receives navigation keys.
type Focus int

const (
	FocusPositions Focus = iota
	FocusTasks
	FocusLogs
)

// Next cycles focus forward through the panes.
func (f Focus) Next() Focus {
	switch f {
	case FocusPositions:
		return FocusTasks
	case FocusTasks:
		return FocusLogs
	default:
		return FocusPositions
	}
}

// Prev cycles focus backward through the panes.
func (f Focus) Prev() Focus {
	switch f {
	case FocusPositions:
		return FocusLogs
	case FocusLogs:
		return FocusTasks
	default:
		return FocusPositions
	}
}

// String returns the string representation of the focused pane
func (f Focus) String() string {
	switch f {
	case FocusPositions:
		return "positions"
	case FocusTasks:
		return "tasks"
	case FocusLogs:
		return "logs"
	default:
		return "unknown"
	}
}
