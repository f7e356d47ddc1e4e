package tui

import (
	"path/filepath"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/xonecas/projsym/internal/highlight"
)

const (
	maxPanelWidth = 110
	// input, divider, status, divider, preview
	chromeRows = 5
	// border top/bottom
	boxRows = 2
	// border left/right plus horizontal padding
	boxCols = 4
)

// View renders the current model state (required by BubbleTea).
func (m Model) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.AltScreen = true
	return v
}

func (m Model) renderContent() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if !m.updates.Visible() {
		return m.renderHidden()
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, m.renderPanel(),
		lipgloss.WithWhitespaceStyle(m.styles.BgFill))
}

func (m Model) panelInnerWidth() int {
	w := min(m.width-2, maxPanelWidth)
	return max(w-boxCols, 10)
}

func (m Model) listRows() int {
	return max(m.height-chromeRows-boxRows-1, 1)
}

func (m Model) renderPanel() string {
	innerW := m.panelInnerWidth()
	divider := m.styles.Border.Render(strings.Repeat("─", innerW))

	var rows []string
	rows = append(rows, m.fit(m.input.View(), innerW))
	rows = append(rows, divider)
	rows = append(rows, m.fit(m.statusLine(), innerW))
	rows = append(rows, m.list.Lines(innerW, m.listRows())...)
	rows = append(rows, divider)
	rows = append(rows, m.fit(m.renderPreview(innerW), innerW))

	return m.styles.Box.Render(strings.Join(rows, "\n"))
}

func (m Model) statusLine() string {
	if s := m.list.StatusLine(m.spinner.View()); s != "" {
		return s
	}
	n := len(m.list.Items())
	if n == 0 {
		return ""
	}
	label := "symbols"
	if n == 1 {
		label = "symbol"
	}
	return m.styles.Dim.Render(humanize.Comma(int64(n)) + " " + label)
}

// renderPreview shows the source line of the selected tag.
func (m Model) renderPreview(innerW int) string {
	tag, idx, ok := m.list.Selected()
	if !ok {
		return ""
	}
	loc := m.relative(tag.File) + ":" + strconv.Itoa(tag.Line)
	if path := m.list.Items().Path(idx); path != tag.Name {
		loc = path + "  " + loc
	}
	head := m.styles.Accent.Render(loc)
	src, ok := m.preview.line(tag.File, tag.Line)
	if !ok || src == "" {
		return head
	}
	room := innerW - ansi.StringWidth(loc) - 2
	if room < 8 {
		return head
	}
	src = ansi.Truncate(src, room, "…")
	return head + m.styles.BgFill.Render("  ") + highlight.Line(tag.File, src, m.theme, m.palette.Bg)
}

func (m Model) renderHidden() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("projsym"))
	if m.root != "" {
		b.WriteString(m.styles.Dim.Render("  " + m.root))
	}
	if m.editor != nil {
		if path, ok := m.editor.ActivePath(); ok {
			b.WriteString(m.styles.Text.Render("  " + m.relative(path)))
		}
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Dim.Render("ctrl+p search symbols  esc quit"))
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, b.String(),
		lipgloss.WithWhitespaceStyle(m.styles.BgFill))
}

func (m Model) relative(path string) string {
	if m.root == "" {
		return path
	}
	if rel, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// fit pads or truncates s to exactly w cells.
func (m Model) fit(s string, w int) string {
	s = ansi.Truncate(s, w, "…")
	if n := ansi.StringWidth(s); n < w {
		s += m.styles.BgFill.Render(strings.Repeat(" ", w-n))
	}
	return s
}
