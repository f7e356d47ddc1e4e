// Package tui is the view shell: a query input over the symbol list, wired
// to the query coordinator and the progress reporter.
package tui

import (
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/xonecas/projsym/internal/highlight"
	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/progress"
	"github.com/xonecas/projsym/internal/search"
	"github.com/xonecas/projsym/internal/tags"
)

// Options wires the shell to the search side.
type Options struct {
	Coordinator *search.Coordinator
	Reporter    *progress.Reporter
	// Updates must be the ListView given to Coordinator and Reporter.
	Updates *listview.Chan
	Editor  search.Editor
	Theme   string
	// Root is shown in the title bar.
	Root string
}

// Model is the application model.
type Model struct {
	width  int
	height int

	input   textinput.Model
	list    listview.Model
	spinner spinner.Model

	coord    *search.Coordinator
	reporter *progress.Reporter
	updates  *listview.Chan
	editor   search.Editor

	theme   string
	palette highlight.Palette
	styles  Styles
	root    string

	preview previewCache
	picked  *tags.Tag
}

// New creates the shell. The panel starts open.
func New(opts Options) Model {
	palette := highlight.ThemePalette(opts.Theme)

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "symbol name"
	input.Focus()

	s := spinner.New(spinner.WithSpinner(spinner.MiniDot))

	return Model{
		input:    input,
		list:     listview.New(listColors(palette)),
		spinner:  s,
		coord:    opts.Coordinator,
		reporter: opts.Reporter,
		updates:  opts.Updates,
		editor:   opts.Editor,
		theme:    opts.Theme,
		palette:  palette,
		styles:   newStyles(palette),
		root:     opts.Root,
		preview:  newPreviewCache(),
	}
}

// Init opens the panel and starts draining list updates (required by BubbleTea).
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.updates.Wait(), m.spinner.Tick, func() tea.Msg {
		return showMsg{}
	})
}

// Picked returns the tag chosen with enter, if any.
func (m Model) Picked() (tags.Tag, bool) {
	if m.picked == nil {
		return tags.Tag{}, false
	}
	return *m.picked, true
}

// showMsg opens the panel (ELM Msg).
type showMsg struct{}

// show opens the panel: the previous results appear right away under the
// loading message and a fresh subscriber starts counting.
func (m *Model) show() {
	if m.updates.Visible() {
		return
	}
	m.updates.SetVisible(true)
	m.reporter.Populate(m.coord.Tags())
}

// hide closes the panel and stops listening for progress.
func (m *Model) hide() {
	if !m.updates.Visible() {
		return
	}
	m.updates.SetVisible(false)
	m.coord.Stop()
	m.reporter.Detach()
}
