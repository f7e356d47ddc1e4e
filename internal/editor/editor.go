// Package editor tracks the focused document.
package editor

import (
	"path/filepath"
	"sync"
)

// Active holds the path of the focused document. The zero value has none.
type Active struct {
	mu   sync.RWMutex
	path string
}

// NewActive returns an Active focused on path ("" for none).
func NewActive(path string) *Active {
	a := &Active{}
	a.SetActive(path)
	return a
}

// SetActive focuses path. Relative paths are made absolute; "" clears focus.
func (a *Active) SetActive(path string) {
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	a.mu.Lock()
	a.path = path
	a.mu.Unlock()
}

// ActivePath returns the focused path, if any.
func (a *Active) ActivePath() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.path, a.path != ""
}
