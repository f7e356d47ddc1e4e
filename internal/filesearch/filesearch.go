// Package filesearch walks a project tree the way a developer sees it:
// version control metadata, dependency caches and gitignored paths are
// skipped.
package filesearch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest file handed to a walk callback.
const MaxFileSize = 1 << 20 // 1 MB

// skipDirs are never descended into, regardless of .gitignore.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
}

// Walker walks the files of one project root.
type Walker struct {
	root   string
	ignore *GitignoreMatcher
}

// NewWalker creates a walker for root, loading root/.gitignore and
// root/.git/info/exclude when present.
func NewWalker(root string) (*Walker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	matcher, err := NewGitignoreMatcher(
		filepath.Join(abs, ".git", "info", "exclude"),
		filepath.Join(abs, ".gitignore"),
	)
	if err != nil {
		// Non-fatal: just won't filter gitignored files
		matcher, _ = NewGitignoreMatcher()
	}
	return &Walker{root: abs, ignore: matcher}, nil
}

// Root returns the absolute project root.
func (w *Walker) Root() string { return w.root }

// Ignored reports whether absPath is outside the project or excluded from it.
func (w *Walker) Ignored(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}
	if isDir && skipDirs[filepath.Base(absPath)] {
		return true
	}
	return w.ignore.Matches(rel, isDir)
}

// Files calls fn for every regular file under the root that isn't ignored
// and is at most MaxFileSize bytes. rel is slash-separated. Walking stops
// at the first error from fn or when ctx is done.
func (w *Walker) Files(ctx context.Context, fn func(absPath, rel string) error) error {
	return w.walk(ctx, func(path string, d os.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() > MaxFileSize {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		return fn(path, filepath.ToSlash(rel))
	})
}

// Dirs calls fn for dir and every directory below it that isn't ignored.
func (w *Walker) Dirs(ctx context.Context, dir string, fn func(absPath string) error) error {
	return w.walkFrom(ctx, dir, func(path string, d os.DirEntry) error {
		if !d.IsDir() {
			return nil
		}
		return fn(path)
	})
}

func (w *Walker) walk(ctx context.Context, fn func(path string, d os.DirEntry) error) error {
	return w.walkFrom(ctx, w.root, fn)
}

func (w *Walker) walkFrom(ctx context.Context, start string, fn func(path string, d os.DirEntry) error) error {
	err := filepath.WalkDir(start, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.Ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path, d)
	})
	if errors.Is(err, filepath.SkipAll) {
		return nil
	}
	return err
}
