package treesitter

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/filesearch"
	"github.com/xonecas/projsym/internal/navto"
)

// Index holds a project-wide symbol map built from tree-sitter parsing.
type Index struct {
	walker *filesearch.Walker

	mu    sync.RWMutex
	files map[string][]Symbol // slash-separated relPath -> symbols
}

// NewIndex creates an empty index rooted at dir.
func NewIndex(root string) (*Index, error) {
	w, err := filesearch.NewWalker(root)
	if err != nil {
		return nil, fmt.Errorf("treesitter: index %s: %w", root, err)
	}
	return &Index{
		walker: w,
		files:  make(map[string][]Symbol),
	}, nil
}

// Root returns the absolute project root.
func (idx *Index) Root() string { return idx.walker.Root() }

// Build walks the project tree, parsing every supported file. Files already
// in the index are replaced.
func (idx *Index) Build(ctx context.Context) error {
	files := make(map[string][]Symbol)
	err := idx.walker.Files(ctx, func(absPath, rel string) error {
		if !Supported(absPath) {
			return nil
		}
		syms, err := ParseFile(ctx, absPath)
		if err != nil || len(syms) == 0 {
			return nil
		}
		files[rel] = syms
		return nil
	})
	if err != nil {
		return fmt.Errorf("treesitter: build: %w", err)
	}

	idx.mu.Lock()
	idx.files = files
	idx.mu.Unlock()

	log.Info().Str("root", idx.Root()).Int("files", len(files)).Msg("treesitter: index built")
	return nil
}

// UpdateFile re-parses a single file and updates the index.
func (idx *Index) UpdateFile(ctx context.Context, absPath string) {
	rel, ok := idx.rel(absPath)
	if !ok || !Supported(absPath) || idx.walker.Ignored(absPath, false) {
		return
	}
	syms, err := ParseFile(ctx, absPath)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err != nil || len(syms) == 0 {
		delete(idx.files, rel)
		return
	}
	idx.files[rel] = syms
}

// RemoveFile drops absPath, or every file below it when it was a directory.
func (idx *Index) RemoveFile(absPath string) {
	rel, ok := idx.rel(absPath)
	if !ok {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.files, rel)
	prefix := rel + "/"
	for p := range idx.files {
		if strings.HasPrefix(p, prefix) {
			delete(idx.files, p)
		}
	}
}

// Files returns the indexed relative paths, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	paths := make([]string, 0, len(idx.files))
	for p := range idx.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Symbols returns symbols for a given relative path.
func (idx *Index) Symbols(relPath string) []Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.files[filepath.ToSlash(relPath)]
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

// Session serves every file of the project once something is indexed.
func (idx *Index) Session(_ context.Context, _ string) (navto.Session, error) {
	if idx.Len() == 0 {
		return nil, fmt.Errorf("treesitter: empty index: %w", navto.ErrNoSession)
	}
	return idx, nil
}

// Open re-parses absPath so the active document is always current.
func (idx *Index) Open(ctx context.Context, absPath string) error {
	idx.UpdateFile(ctx, absPath)
	return nil
}

func (idx *Index) rel(absPath string) (string, bool) {
	rel, err := filepath.Rel(idx.Root(), absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
