package ui

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panicModel struct {
	panicOn string
}

func (p panicModel) Init() tea.Cmd {
	if p.panicOn == "init" {
		panic("init boom")
	}
	return nil
}

func (p panicModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	if p.panicOn == "update" {
		panic("update boom")
	}
	return p, nil
}

func (p panicModel) View() string {
	if p.panicOn == "view" {
		panic("view boom")
	}
	return "inner view"
}

type countingModel struct {
	n int
}

func (c countingModel) Init() tea.Cmd { return nil }

func (c countingModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	c.n++
	return c, nil
}

func (c countingModel) View() string { return fmt.Sprintf("count=%d", c.n) }

func TestSafeModelPassesThrough(t *testing.T) {
	sm := NewSafeModel(panicModel{}, zap.NewNop())

	assert.Nil(t, sm.Init())
	model, cmd := sm.Update(nil)
	assert.Same(t, sm, model)
	assert.Nil(t, cmd)
	assert.Equal(t, "inner view", sm.View())
}

func TestSafeModelRecoversUpdatePanic(t *testing.T) {
	sm := NewSafeModel(panicModel{panicOn: "update"}, zap.NewNop())

	var model tea.Model
	var cmd tea.Cmd
	require.NotPanics(t, func() {
		model, cmd = sm.Update(nil)
	})
	assert.Same(t, sm, model)
	assert.Nil(t, cmd)
}

func TestSafeModelRecoversViewPanic(t *testing.T) {
	sm := NewSafeModel(panicModel{panicOn: "view"}, zap.NewNop())

	var view string
	require.NotPanics(t, func() {
		view = sm.View()
	})
	assert.Contains(t, view, "render error")
}

func TestSafeModelRecoversInitPanic(t *testing.T) {
	sm := NewSafeModel(panicModel{panicOn: "init"}, zap.NewNop())

	var cmd tea.Cmd
	require.NotPanics(t, func() {
		cmd = sm.Init()
	})
	assert.Nil(t, cmd)
}

func TestSafeModelRetainsUpdatedState(t *testing.T) {
	sm := NewSafeModel(countingModel{}, zap.NewNop())

	sm.Update(nil)
	sm.Update(nil)

	assert.Equal(t, "count=2", sm.View())
}
