package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/projsym/internal/treesitter"
)

func TestProjectRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0o644))

	got, err := projectRoot("", file)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = projectRoot(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = projectRoot(file, "")
	assert.Error(t, err, "a file is not a root")
}

func TestActiveFileDefaultsToFirstIndexed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package x\n\nfunc B() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package x\n\nfunc A() {}\n"), 0o644))

	idx, err := treesitter.NewIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Build(t.Context()))

	got, err := activeFile(idx, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.go"), got)

	_, err = activeFile(idx, filepath.Join(dir, "missing.go"))
	assert.Error(t, err)
}

func TestActiveFileEmptyProject(t *testing.T) {
	idx, err := treesitter.NewIndex(t.TempDir())
	require.NoError(t, err)
	_, err = activeFile(idx, "")
	assert.Error(t, err)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "log-level", "root"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}
