package ui

import (
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// SafeModel wraps a tea.Model so a panic in Init, Update or View is
// logged and swallowed instead of tearing down the terminal while the
// alt screen is active. The bot keeps running underneath either way.
type SafeModel struct {
	inner  tea.Model
	logger *zap.Logger
}

// NewSafeModel wraps a model with panic recovery
func NewSafeModel(inner tea.Model, logger *zap.Logger) *SafeModel {
	return &SafeModel{
		inner:  inner,
		logger: logger,
	}
}

// Init wraps the Init method with panic recovery
func (sm *SafeModel) Init() (cmd tea.Cmd) {
	defer sm.recoverFromPanic("Init", &cmd)
	return sm.inner.Init()
}

// Update wraps the Update method with panic recovery. The updated inner
// model is retained so state survives across messages.
func (sm *SafeModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	model = sm
	defer sm.recoverFromPanic("Update", &cmd)
	inner, innerCmd := sm.inner.Update(msg)
	sm.inner = inner
	return sm, innerCmd
}

// View wraps the View method with panic recovery
func (sm *SafeModel) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			sm.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = "Dashboard render error. Press q to exit; the bot is still running."
		}
	}()
	return sm.inner.View()
}

func (sm *SafeModel) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		sm.logger.Error("Dashboard panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}
