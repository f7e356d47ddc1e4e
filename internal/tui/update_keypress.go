package tui

import (
	tea "charm.land/bubbletea/v2"
)

// handleKeyPress processes key events. Returns (model, cmd, true) if handled.
func (m *Model) handleKeyPress(msg tea.KeyPressMsg) (Model, tea.Cmd, bool) {
	handler := m.keyPressHandlers()[msg.Keystroke()]
	if handler == nil {
		return Model{}, nil, false
	}
	return handler(m)
}

func (m *Model) keyPressHandlers() map[string]func(*Model) (Model, tea.Cmd, bool) {
	return map[string]func(*Model) (Model, tea.Cmd, bool){
		"ctrl+c": (*Model).handleCtrlC,
		"ctrl+p": (*Model).handleCtrlP,
		"esc":    (*Model).handleEsc,
		"enter":  (*Model).handleEnter,
		"up":     (*Model).handleUp,
		"ctrl+k": (*Model).handleUp,
		"down":   (*Model).handleDown,
		"ctrl+j": (*Model).handleDown,
	}
}

func (m *Model) handleCtrlC() (Model, tea.Cmd, bool) {
	m.hide()
	return *m, tea.Quit, true
}

func (m *Model) handleCtrlP() (Model, tea.Cmd, bool) {
	if m.updates.Visible() {
		m.hide()
	} else {
		m.preview.forget()
		m.show()
	}
	return *m, nil, true
}

func (m *Model) handleEsc() (Model, tea.Cmd, bool) {
	if !m.updates.Visible() {
		return *m, tea.Quit, true
	}
	m.hide()
	return *m, nil, true
}

func (m *Model) handleEnter() (Model, tea.Cmd, bool) {
	if !m.updates.Visible() {
		return *m, nil, true
	}
	tag, _, ok := m.list.Selected()
	if !ok {
		return *m, nil, true
	}
	m.picked = &tag
	m.hide()
	return *m, tea.Quit, true
}

func (m *Model) handleUp() (Model, tea.Cmd, bool) {
	if m.updates.Visible() {
		m.list.Up()
	}
	return *m, nil, true
}

func (m *Model) handleDown() (Model, tea.Cmd, bool) {
	if m.updates.Visible() {
		m.list.Down()
	}
	return *m, nil, true
}

// handleInput forwards the key to the query input and reports a changed
// query to the coordinator.
func (m *Model) handleInput(msg tea.KeyPressMsg) (Model, tea.Cmd) {
	if !m.updates.Visible() {
		return *m, nil
	}
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		// Inline, so the coordinator sees edits in typing order.
		m.coord.QueryChanged(after)
	}
	return *m, cmd
}
