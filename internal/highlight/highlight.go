// Package highlight provides syntax highlighting via Chroma and derives the
// UI palette from the same theme, decoupled from any specific TUI component.
package highlight

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Line highlights one source line of path, picking the language from the
// file name. Newlines are flattened so the result stays on one row.
func Line(path, text, theme, bgHex string) string {
	text = strings.ReplaceAll(text, "\t", "    ")
	text = strings.ReplaceAll(text, "\n", " ")
	return Highlight(text, DetectLanguage(path), theme, bgHex)
}

// Highlight returns an ANSI-highlighted version of text using the given
// Chroma language and theme. bgHex ("#rrggbb") is injected after every ANSI
// reset so the background color is never lost.
func Highlight(text, language, theme, bgHex string) string {
	lex := lexers.Get(language)
	if lex == nil {
		return text
	}
	lex = chroma.Coalesce(lex)
	sty := styles.Get(theme)
	fmtr := formatters.Get("terminal16m")
	if fmtr == nil {
		fmtr = formatters.Fallback
	}
	it, err := lex.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf strings.Builder
	if err := fmtr.Format(&buf, sty, it); err != nil {
		return text
	}
	raw := strings.TrimRight(buf.String(), "\n")

	// Chroma's terminal16m formatter skips bg on tokens that inherit from
	// the Background entry, and every \x1b[0m reset clears bg. Fix by
	// replacing resets with reset+bg so the background is always active.
	bgSeq := hexToBgSeq(bgHex)
	return bgSeq + strings.ReplaceAll(raw, "\x1b[0m", "\x1b[0m"+bgSeq)
}

// hexToBgSeq converts "#rrggbb" to an ANSI 24-bit background escape sequence.
func hexToBgSeq(hex string) string {
	if len(hex) != 7 || hex[0] != '#' {
		return ""
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return ""
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm", r, g, b)
}

// Palette holds the UI colors of one Chroma theme. Everything but Accent is
// a step on the ramp from Bg to Fg.
type Palette struct {
	Bg     string
	Fg     string
	Border string // dividers
	SelBg  string // selected row
	Dim    string // descriptions, hints
	Muted  string // panel border
	Accent string // most saturated token color
}

// ramp positions between Bg (0) and Fg (1).
const (
	rampBorder = 0.10
	rampSelBg  = 0.18
	rampDim    = 0.25
	rampMuted  = 0.45
)

var fallbackPalette = Palette{
	Bg: "#000000", Fg: "#c8c8c8",
	Border: "#141414", SelBg: "#242424",
	Dim: "#323232", Muted: "#5a5a5a",
	Accent: "#00dfff",
}

// ThemePalette derives the palette for a Chroma theme name. Unknown themes
// get a neutral dark palette.
func ThemePalette(theme string) Palette {
	sty := styles.Get(theme)
	if sty == nil {
		return fallbackPalette
	}
	bg, fg := fallbackPalette.color(fallbackPalette.Bg), fallbackPalette.color(fallbackPalette.Fg)
	entry := sty.Get(chroma.Background)
	if entry.Background.IsSet() {
		bg = fallbackPalette.color(entry.Background.String())
	}
	if entry.Colour.IsSet() {
		fg = fallbackPalette.color(entry.Colour.String())
	}

	step := func(t float64) string { return bg.BlendRgb(fg, t).Clamped().Hex() }
	return Palette{
		Bg:     bg.Hex(),
		Fg:     fg.Hex(),
		Border: step(rampBorder),
		SelBg:  step(rampSelBg),
		Dim:    step(rampDim),
		Muted:  step(rampMuted),
		Accent: accent(sty, fg.Hex()),
	}
}

// color parses hex, falling back to p.Fg and then black.
func (p Palette) color(hex string) colorful.Color {
	if c, err := colorful.Hex(hex); err == nil {
		return c
	}
	c, _ := colorful.Hex(p.Fg)
	return c
}

// accent returns the most saturated token foreground of sty.
func accent(sty *chroma.Style, fallback string) string {
	best, bestSat := fallback, 0.0
	for _, tt := range sty.Types() {
		e := sty.Get(tt)
		if !e.Colour.IsSet() {
			continue
		}
		c, err := colorful.Hex(e.Colour.String())
		if err != nil {
			continue
		}
		if _, sat, v := c.Hsv(); v > 0 && sat > bestSat {
			best, bestSat = c.Hex(), sat
		}
	}
	return best
}
