// Package listview is the selectable symbol list: a partial-update state
// protocol, a channel adapter that carries updates onto the bubbletea
// goroutine, and the list model itself.
package listview

import (
	"sync"
	"sync/atomic"

	tea "charm.land/bubbletea/v2"

	"github.com/xonecas/projsym/internal/tags"
)

// State is a partial list update. Nil fields are left unchanged; a pointer
// to "" clears a message or badge.
type State struct {
	Items          *tags.Tags
	LoadingMessage *string
	LoadingBadge   *string
}

// Text returns a pointer for State fields.
func Text(s string) *string { return &s }

// Items returns a pointer for State.Items.
func Items(ts tags.Tags) *tags.Tags {
	if ts == nil {
		ts = tags.Tags{}
	}
	return &ts
}

// ListView receives state updates from the search side.
type ListView interface {
	Update(State)
	Visible() bool
}

// StateMsg delivers a State to the bubbletea program.
type StateMsg struct{ State State }

// Chan is a ListView that queues updates for the bubbletea Update loop.
// Updates may be sent from any goroutine, including the Update loop itself.
type Chan struct {
	updates chan State
	done    chan struct{}
	once    sync.Once
	visible atomic.Bool
}

// NewChan creates a channel adapter buffering up to size updates.
func NewChan(size int) *Chan {
	return &Chan{
		updates: make(chan State, size),
		done:    make(chan struct{}),
	}
}

// Update queues s. It is dropped once the adapter is closed.
func (c *Chan) Update(s State) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.updates <- s:
	case <-c.done:
	}
}

// Visible reports the panel visibility last set by the shell.
func (c *Chan) Visible() bool { return c.visible.Load() }

// SetVisible records the panel visibility.
func (c *Chan) SetVisible(v bool) { c.visible.Store(v) }

// Wait returns a tea.Cmd delivering the next queued update (ELM Cmd).
func (c *Chan) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-c.updates:
			return StateMsg{State: s}
		case <-c.done:
			return nil
		}
	}
}

// Close stops delivery. Safe to call more than once.
func (c *Chan) Close() {
	c.once.Do(func() { close(c.done) })
}
