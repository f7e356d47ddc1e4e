// Package search coordinates incremental project-symbol queries: it debounces
// query input, issues one backend request per settled query, fences out
// stale responses and publishes results for the list view.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/navto"
	"github.com/xonecas/projsym/internal/progress"
	"github.com/xonecas/projsym/internal/tags"
)

const (
	// DefaultDelay is the quiescence window before a query settles.
	DefaultDelay = 250 * time.Millisecond
	// DefaultTimeout bounds one backend round-trip.
	DefaultTimeout = 10 * time.Second

	// MsgEnterQuery is shown before any query has settled.
	MsgEnterQuery = "please enter a search value"
	// MsgNoSymbols is shown when a settled query found nothing.
	MsgNoSymbols = "no symbols found"
)

// Editor reports the path of the focused document.
type Editor interface {
	ActivePath() (string, bool)
}

// Options tunes a Coordinator. Zero values pick the defaults.
type Options struct {
	Delay      time.Duration
	Timeout    time.Duration
	MaxResults int
}

// Coordinator owns the search session state. All state is guarded by mu;
// backend calls run on their own goroutine and report back through complete.
// Publishing results or a clear happens under commitMu, so list commits land
// in the order their requests were made.
type Coordinator struct {
	resolver navto.Resolver
	editor   Editor
	bus      *progress.Bus
	list     listview.ListView
	opts     Options

	commitMu sync.Mutex

	mu           sync.Mutex
	timer        *time.Timer
	timerGen     uint64 // bumped whenever the timer is stopped or replaced
	pending      string
	committing   bool // a commit is publishing
	clearPending bool // a clear arrived while committing
	query   string // last settled query
	settled bool   // query holds a value
	current tags.Tags
	seq     uint64 // latest dispatched request
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Coordinator. list receives the final result commit;
// intermediate progress goes through bus.
func New(resolver navto.Resolver, editor Editor, bus *progress.Bus, list listview.ListView, opts Options) *Coordinator {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Coordinator{
		resolver: resolver,
		editor:   editor,
		bus:      bus,
		list:     list,
		opts:     opts,
	}
}

// QueryChanged handles a raw query edit. Empty text clears the results right
// away without contacting the backend; anything else (re)starts the debounce
// timer so only the last text of a burst is searched.
func (c *Coordinator) QueryChanged(text string) {
	if text == "" {
		c.clear()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = text
	c.stopTimerLocked()
	gen := c.timerGen
	c.timer = time.AfterFunc(c.opts.Delay, func() { c.settle(gen) })
}

// clear drops the in-flight request and publishes an empty batch. A clear
// issued while a commit is publishing (from a bus subscriber, say) is
// replayed once that commit is done.
func (c *Coordinator) clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.seq++ // drop whatever is in flight
	c.cancelLocked()
	c.current = nil
	if c.committing {
		c.clearPending = true
		c.mu.Unlock()
		return
	}
	seq := c.seq
	c.mu.Unlock()

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.committing = true
	c.mu.Unlock()

	c.bus.Publish(progress.TopicTags, nil)
	c.endCommit()
}

// settle fires when the debounce window of timer generation gen elapses.
func (c *Coordinator) settle(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	text := c.pending
	c.timer = nil
	c.mu.Unlock()

	c.startTask(text)
}

// startTask issues a request for text against the active document. Without
// an active document nothing happens. A debounce armed meanwhile stays armed.
func (c *Coordinator) startTask(text string) {
	path, ok := c.editor.ActivePath()
	if !ok || path == "" {
		log.Debug().Str("query", text).Msg("search: no active document, skipping")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.cancelLocked()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	id := uuid.NewString()
	log.Debug().Str("request", id).Uint64("seq", seq).Str("file", path).Str("query", text).Msg("search: request")

	go func() {
		defer c.wg.Done()
		defer cancel()
		result, err := c.generate(ctx, path, text)
		c.complete(id, seq, path, text, result, err)
	}()
}

// generate asks the backend for matches and flattens them into tags.
func (c *Coordinator) generate(ctx context.Context, path, text string) (tags.Tags, error) {
	session, err := c.resolver.Session(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if err := session.Open(ctx, path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	resp, err := session.Navto(ctx, navto.Request{
		File:            path,
		SearchValue:     text,
		CurrentFileOnly: false,
		MaxResults:      c.opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("navto: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return tags.Tags{}, nil
	}
	return tags.Build(*resp.Body), nil
}

// complete applies a finished request. Results of anything but the latest
// request are dropped. Failures are logged and shown as an empty result;
// they never reach the caller.
func (c *Coordinator) complete(id string, seq uint64, path, text string, result tags.Tags, err error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed || seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		log.Debug().Str("request", id).Uint64("seq", seq).Uint64("latest", latest).Msg("search: discarding stale result")
		return
	}
	if err != nil {
		c.current = nil
	} else {
		c.query = text
		c.settled = true
		c.current = result
	}
	c.committing = true
	c.mu.Unlock()
	defer c.endCommit()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug().Str("request", id).Str("file", path).Msg("search: request cancelled")
		} else {
			log.Error().Err(err).Str("request", id).Str("file", path).Str("query", text).Msg("search: navto failed")
		}
		c.bus.Publish(progress.TopicTags, nil)
		return
	}

	log.Debug().Str("request", id).Int("count", len(result)).Str("query", text).Msg("search: results")

	c.bus.Publish(progress.TopicTags, result)
	if len(result) > 0 && c.latest(seq) {
		c.list.Update(listview.State{
			LoadingMessage: listview.Text(""),
			LoadingBadge:   listview.Text(""),
			Items:          listview.Items(result),
		})
	}
}

// endCommit replays clears deferred during a commit, then ends it.
func (c *Coordinator) endCommit() {
	for {
		c.mu.Lock()
		if !c.clearPending || c.closed {
			c.clearPending = false
			c.committing = false
			c.mu.Unlock()
			return
		}
		c.clearPending = false
		c.mu.Unlock()

		c.bus.Publish(progress.TopicTags, nil)
	}
}

func (c *Coordinator) latest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && seq == c.seq
}

// Stop cancels a scheduled debounce. In-flight requests keep running.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

// Close stops the timer, cancels the in-flight request and waits for it to
// return. Nothing is published afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopTimerLocked()
	c.cancelLocked()
	c.mu.Unlock()

	c.wg.Wait()
}

// EmptyMessage is the message for an empty list: it depends on whether any
// query has settled yet.
func (c *Coordinator) EmptyMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settled {
		return MsgNoSymbols
	}
	return MsgEnterQuery
}

// Query returns the last settled query.
func (c *Coordinator) Query() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query, c.settled
}

// Tags returns the most recent result set.
func (c *Coordinator) Tags() tags.Tags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
