package highlight

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// extLanguages maps common extensions to Chroma language identifiers.
var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".jsx":   "jsx",
	".tsx":   "tsx",
	".java":  "java",
	".c":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".h":     "c",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".rs":    "rust",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "zsh",
	".lua":   "lua",
	".sql":   "sql",
	".proto": "protobuf",
}

// DetectLanguage returns the Chroma language identifier for path, or "text".
func DetectLanguage(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}

	// Let Chroma's own filename globs decide (Makefile, Dockerfile, ...).
	if lex := lexers.Match(filepath.Base(path)); lex != nil {
		return strings.ToLower(lex.Config().Name)
	}
	return "text"
}
