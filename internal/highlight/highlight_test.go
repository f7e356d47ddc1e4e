package highlight

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestDetectLanguage(t *testing.T) {
	for path, want := range map[string]string{
		"main.go":        "go",
		"pkg/mod.PY":     "python",
		"web/app.tsx":    "tsx",
		"notes.unknownx": "text",
	} {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLineKeepsText(t *testing.T) {
	src := "func (s *Server) Serve() error {\n"
	out := Line("server.go", src, "github-dark", "#0d1117")
	if strings.Contains(out, "\n") {
		t.Fatalf("expected one row, got %q", out)
	}
	if got := ansi.Strip(out); got != strings.TrimRight(strings.ReplaceAll(src, "\n", " "), " ") && got != strings.ReplaceAll(src, "\n", " ") {
		t.Fatalf("stripped text changed: %q", got)
	}
	if !strings.HasPrefix(out, "\x1b[48;2;13;17;23m") {
		t.Fatalf("expected background prefix, got %q", out[:min(len(out), 20)])
	}
}

func TestThemePalette(t *testing.T) {
	p := ThemePalette("github-dark")
	for name, c := range map[string]string{"bg": p.Bg, "fg": p.Fg, "sel": p.SelBg, "dim": p.Dim, "accent": p.Accent} {
		if len(c) != 7 || c[0] != '#' {
			t.Errorf("%s = %q, want #rrggbb", name, c)
		}
	}
	if ThemePalette("github-dark") != p {
		t.Error("palette should be deterministic")
	}
	if ThemePalette("no-such-theme-xyz") == (Palette{}) {
		t.Error("unknown theme should still yield colors")
	}
}

func TestHexToBgSeq(t *testing.T) {
	if got := hexToBgSeq("#ff0080"); got != "\x1b[48;2;255;0;128m" {
		t.Errorf("got %q", got)
	}
	if hexToBgSeq("red") != "" {
		t.Error("invalid hex should give no sequence")
	}
}
