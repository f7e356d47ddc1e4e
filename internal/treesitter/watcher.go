package treesitter

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/filesearch"
)

// DefaultSettle is how long a file must be quiet before it is re-parsed.
const DefaultSettle = 200 * time.Millisecond

// Watcher keeps an Index current as files change on disk.
type Watcher struct {
	idx    *Index
	walker *filesearch.Walker
	fsw    *fsnotify.Watcher
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher watches every non-ignored directory under the index root.
func NewWatcher(ctx context.Context, idx *Index, settle time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		idx:     idx,
		walker:  idx.walker,
		fsw:     fsw,
		settle:  settle,
		pending: make(map[string]*time.Timer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if err := w.addRecursive(ctx, idx.Root()); err != nil {
		cancel()
		fsw.Close()
		return nil, err
	}

	go w.run(ctx)
	return w, nil
}

// Close stops watching. Pending re-parses are dropped.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	<-w.done

	w.mu.Lock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) addRecursive(ctx context.Context, dir string) error {
	return w.walker.Dirs(ctx, dir, func(path string) error {
		if err := w.fsw.Add(path); err != nil {
			// Non-fatal: the directory may be gone or unreadable.
			log.Debug().Err(err).Str("dir", path).Msg("treesitter: watch")
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("treesitter: watcher")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.idx.RemoveFile(ev.Name)

	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				_ = w.addRecursive(ctx, ev.Name)
			}
			return
		}
		if Supported(ev.Name) && !w.walker.Ignored(ev.Name, false) {
			w.schedule(ctx, ev.Name)
		}
	}
}

// schedule re-parses path once it has been quiet for the settle period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.idx.UpdateFile(ctx, path)
		log.Debug().Str("file", path).Msg("treesitter: reindexed")
	})
}
