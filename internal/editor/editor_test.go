package editor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActive(t *testing.T) {
	var a Active
	_, ok := a.ActivePath()
	assert.False(t, ok)

	a.SetActive("main.go")
	p, ok := a.ActivePath()
	assert.True(t, ok)
	assert.True(t, filepath.IsAbs(p))
	assert.Equal(t, "main.go", filepath.Base(p))

	a.SetActive("")
	_, ok = a.ActivePath()
	assert.False(t, ok)
}

func TestNewActive(t *testing.T) {
	p, ok := NewActive("/tmp/x.go").ActivePath()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/x.go", p)
}
