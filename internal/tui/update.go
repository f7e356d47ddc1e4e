package tui

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/xonecas/projsym/internal/listview"
)

// Update handles incoming messages and updates the model (required by BubbleTea).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	// -- Window resize -------------------------------------------------------
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(m.panelInnerWidth()-4, 8))
		return m, nil

	// -- Keyboard ------------------------------------------------------------
	case tea.KeyPressMsg:
		if mdl, cmd, handled := m.handleKeyPress(msg); handled {
			return mdl, cmd
		}
		return m.handleInput(msg)

	// -- Paste ---------------------------------------------------------------
	case tea.PasteMsg:
		if !m.updates.Visible() {
			return m, nil
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if after := m.input.Value(); after != before {
			m.coord.QueryChanged(after)
		}
		return m, cmd

	// -- Panel opened --------------------------------------------------------
	case showMsg:
		m.show()
		return m, nil

	// -- List state from coordinator / reporter -------------------------------
	case listview.StateMsg:
		m.list.Apply(msg.State)
		return m, m.updates.Wait()

	// -- Spinner -------------------------------------------------------------
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}
