package listview

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/xonecas/projsym/internal/tags"
)

// Colors holds the theme colors for the list.
type Colors struct {
	Fg     string
	Bg     string
	Dim    string
	SelFg  string
	SelBg  string
	Accent string
}

// Model is the symbol list: items, selection, loading message and badge.
type Model struct {
	items    tags.Tags
	selected int
	message  string
	badge    string

	colors Colors
}

// New creates an empty list.
func New(colors Colors) Model {
	return Model{colors: colors}
}

// Apply merges a partial State into the list.
func (m *Model) Apply(s State) {
	if s.Items != nil {
		m.items = *s.Items
		m.selected = 0
	}
	if s.LoadingMessage != nil {
		m.message = *s.LoadingMessage
	}
	if s.LoadingBadge != nil {
		m.badge = *s.LoadingBadge
	}
}

// Items returns the current items.
func (m *Model) Items() tags.Tags { return m.items }

// Message returns the loading/empty message, "" when none.
func (m *Model) Message() string { return m.message }

// Badge returns the progress badge, "" when none.
func (m *Model) Badge() string { return m.badge }

// Selected returns the highlighted tag and its index.
func (m *Model) Selected() (tags.Tag, int, bool) {
	if len(m.items) == 0 {
		return tags.Tag{}, -1, false
	}
	idx := m.selected
	if idx >= len(m.items) {
		idx = 0
	}
	return m.items[idx], idx, true
}

// Up moves the selection up.
func (m *Model) Up() {
	if m.selected > 0 {
		m.selected--
	}
}

// Down moves the selection down.
func (m *Model) Down() {
	if m.selected < len(m.items)-1 {
		m.selected++
	}
}

// StatusLine renders the loading message and badge, or "" when both are unset.
func (m *Model) StatusLine(spin string) string {
	if m.message == "" && m.badge == "" {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.colors.Dim))
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(m.colors.Accent))
	var b strings.Builder
	if spin != "" && m.badge != "" {
		b.WriteString(spin)
		b.WriteByte(' ')
	}
	b.WriteString(dim.Render(m.message))
	if m.badge != "" {
		b.WriteByte(' ')
		b.WriteString(accent.Render("[" + m.badge + "]"))
	}
	return b.String()
}

// Lines renders up to height rows of innerW cells each.
func (m *Model) Lines(innerW, height int) []string {
	scrollOff := 0
	if m.selected >= height {
		scrollOff = m.selected - height + 1
	}

	bg := lipgloss.Color(m.colors.Bg)
	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.colors.Dim)).
		Background(bg)
	selStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.colors.SelFg)).
		Background(lipgloss.Color(m.colors.SelBg))

	var lines []string
	for i := scrollOff; i < len(m.items) && len(lines) < height; i++ {
		tag := m.items[i]
		name := tag.Name
		if tag.HasParent() {
			name = "  " + name
		}
		desc := describe(tag)
		if i == m.selected {
			lines = append(lines, selStyle.Render(padRight(name+"  "+desc, innerW)))
			continue
		}
		lines = append(lines, padRight(name+dimStyle.Render("  "+desc), innerW))
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", innerW))
	}
	return lines
}

func describe(t tags.Tag) string {
	desc := string(t.Kind)
	if t.ContainerName != "" {
		desc += " in " + t.ContainerName
	}
	return desc + "  " + t.Location()
}

func padRight(s string, w int) string {
	s = ansi.Truncate(s, w, "…")
	if n := ansi.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
