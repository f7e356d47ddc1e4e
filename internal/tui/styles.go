package tui

import (
	"charm.land/lipgloss/v2"

	"github.com/xonecas/projsym/internal/highlight"
	"github.com/xonecas/projsym/internal/listview"
)

// Styles holds the lipgloss styles derived from the theme palette.
type Styles struct {
	Title  lipgloss.Style
	Text   lipgloss.Style
	Dim    lipgloss.Style
	Accent lipgloss.Style
	Border lipgloss.Style
	Box    lipgloss.Style
	BgFill lipgloss.Style
}

func newStyles(p highlight.Palette) Styles {
	bg := lipgloss.Color(p.Bg)
	return Styles{
		Title:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Background(bg).Bold(true),
		Text:   lipgloss.NewStyle().Foreground(lipgloss.Color(p.Fg)).Background(bg),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Dim)).Background(bg),
		Accent: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Accent)).Background(bg),
		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Border)).Background(bg),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Muted)).
			BorderBackground(bg).
			Foreground(lipgloss.Color(p.Fg)).
			Background(bg).
			Padding(0, 1),
		BgFill: lipgloss.NewStyle().Background(bg),
	}
}

func listColors(p highlight.Palette) listview.Colors {
	return listview.Colors{
		Fg:     p.Fg,
		Bg:     p.Bg,
		Dim:    p.Dim,
		SelFg:  p.Fg,
		SelBg:  p.SelBg,
		Accent: p.Accent,
	}
}
