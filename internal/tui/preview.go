package tui

import (
	"os"
	"strings"
)

// previewCache keeps the source lines of files already previewed.
type previewCache struct {
	files map[string][]string
}

func newPreviewCache() previewCache {
	return previewCache{files: make(map[string][]string)}
}

// line returns the 1-indexed source line of path, trimmed of indentation.
func (c previewCache) line(path string, n int) (string, bool) {
	if path == "" || n < 1 {
		return "", false
	}
	lines, ok := c.files[path]
	if !ok {
		var err error
		lines, err = readLines(path)
		if err != nil {
			return "", false
		}
		c.files[path] = lines
	}
	if n > len(lines) {
		return "", false
	}
	return strings.TrimSpace(lines[n-1]), true
}

// forget drops cached content so the next preview rereads the file.
func (c previewCache) forget() {
	clear(c.files)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}
