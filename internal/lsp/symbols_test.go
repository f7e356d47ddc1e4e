package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/projsym/internal/navto"
	"github.com/xonecas/projsym/internal/tags"
)

const workspaceSymbols = `[
  {"name": "Server", "kind": 23, "location": {"uri": "file:///src/server.go", "range": {"start": {"line": 9, "character": 5}, "end": {"line": 20, "character": 1}}}},
  {"name": "Serve", "kind": 6, "containerName": "Server", "location": {"uri": "file:///src/server.go", "range": {"start": {"line": 22, "character": 0}, "end": {"line": 30, "character": 1}}}},
  {"name": "OldServe", "kind": 6, "tags": [1], "containerName": "Server", "location": {"uri": "file:///src/server.go", "range": {"start": {"line": 32, "character": 0}, "end": {"line": 33, "character": 1}}}},
  {"name": "Server", "kind": 5, "containerName": "pkg", "location": {"uri": "file:///src/other.ts"}}
]`

func TestDecodeSymbols(t *testing.T) {
	items, err := decodeSymbols([]byte(workspaceSymbols))
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Server", items[0].Name)
	assert.Equal(t, string(tags.KindStruct), items[0].Kind)
	assert.Equal(t, filepath.FromSlash("/src/server.go"), items[0].File)
	assert.Equal(t, navto.Location{Line: 10, Offset: 6}, items[0].Start)
	assert.Equal(t, "deprecated", items[2].KindModifiers)
	assert.Equal(t, navto.Location{}, items[3].Start, "workspace symbols may omit the range")
}

func TestDecodeSymbolsNull(t *testing.T) {
	items, err := decodeSymbols([]byte("null"))
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = decodeSymbols([]byte(`{"name": 1}`))
	assert.Error(t, err)
}

func TestNestByContainer(t *testing.T) {
	items, err := decodeSymbols([]byte(workspaceSymbols))
	require.NoError(t, err)

	got := tags.Build(nest(items))
	require.Len(t, got, 4)

	assert.Equal(t, "Server", got[0].Name)
	assert.Equal(t, tags.NoParent, got[0].Parent)
	assert.Equal(t, "Serve", got[1].Name)
	assert.Equal(t, 0, got[1].Parent)
	assert.Equal(t, "OldServe", got[2].Name)
	assert.Equal(t, 0, got[2].Parent)
	assert.Equal(t, "Server", got[3].Name)
	assert.Equal(t, tags.NoParent, got[3].Parent, "container lives in another file")
}

func TestNestBreaksCycles(t *testing.T) {
	items := []navto.Item{
		{Name: "a", ContainerName: "b", File: "x"},
		{Name: "b", ContainerName: "a", File: "x"},
		{Name: "c", ContainerName: "c", File: "x"},
	}

	got := tags.Build(nest(items))
	require.Len(t, got, 3)
	roots := 0
	for _, tag := range got {
		if !tag.HasParent() {
			roots++
		}
	}
	assert.Equal(t, 2, roots)
}

func TestOnlyFile(t *testing.T) {
	items := []navto.Item{{Name: "a", File: "x"}, {Name: "b", File: "y"}}
	got := onlyFile(items, "y")
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)
	assert.Len(t, items, 2)
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, filepath.FromSlash("/a b/c.go"), uriToPath("file:///a%20b/c.go"))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
}

func TestFindRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644))
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	assert.Equal(t, dir, findRoot(filepath.Join(sub, "x.go"), []string{"go.mod"}))
	assert.Equal(t, "", findRoot(filepath.Join(sub, "x.go"), []string{"no-such-marker"}))
}
