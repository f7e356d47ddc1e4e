package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/tags"
)

type recordingList struct {
	mu      sync.Mutex
	updates []listview.State
	model   listview.Model
}

func (l *recordingList) Update(s listview.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, s)
	l.model.Apply(s)
}

func (l *recordingList) Visible() bool { return true }

func batch(n int) tags.Tags {
	out := make(tags.Tags, n)
	for i := range out {
		out[i] = tags.Tag{Name: "t", Parent: tags.NoParent}
	}
	return out
}

func TestBusDeliversInOrder(t *testing.T) {
	b := NewBus()
	var got []int
	b.Subscribe(TopicTags, func(ts tags.Tags) { got = append(got, len(ts)) })

	b.Publish(TopicTags, batch(1))
	b.Publish(TopicTags, batch(2))
	b.Publish("other", batch(3))

	assert.Equal(t, []int{1, 2}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	var first, second int
	unsub := b.Subscribe(TopicTags, func(tags.Tags) { first++ })
	b.Subscribe(TopicTags, func(tags.Tags) { second++ })

	unsub()
	unsub()
	b.Publish(TopicTags, nil)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBusClearAndClose(t *testing.T) {
	b := NewBus()
	calls := 0
	b.Subscribe(TopicTags, func(tags.Tags) { calls++ })
	b.Clear(TopicTags)
	b.Publish(TopicTags, nil)
	assert.Equal(t, 0, calls)

	b.Subscribe(TopicTags, func(tags.Tags) { calls++ })
	b.Close()
	b.Publish(TopicTags, nil)
	b.Subscribe(TopicTags, func(tags.Tags) { calls++ })()
	b.Publish(TopicTags, nil)
	assert.Equal(t, 0, calls)
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	b := NewBus()
	after := false
	b.Subscribe(TopicTags, func(tags.Tags) { panic("boom") })
	b.Subscribe(TopicTags, func(tags.Tags) { after = true })

	require.NotPanics(t, func() { b.Publish(TopicTags, nil) })
	assert.True(t, after)
}

func TestReporterPopulateEmpty(t *testing.T) {
	list := &recordingList{}
	r := NewReporter(NewBus(), list, func() string { return "please enter a search value" })

	r.Populate(nil)

	require.Len(t, list.updates, 2, "loading state, then the empty commit")
	assert.Equal(t, LoadingMessage, *list.updates[0].LoadingMessage)
	assert.Equal(t, "0", *list.updates[0].LoadingBadge)
	assert.Equal(t, "please enter a search value", list.model.Message())
	assert.Equal(t, "", list.model.Badge())
	assert.Empty(t, list.model.Items())
}

func TestReporterPopulateShowsPreviousTags(t *testing.T) {
	list := &recordingList{}
	r := NewReporter(NewBus(), list, func() string { return "no symbols found" })

	r.Populate(batch(3))

	require.NotNil(t, list.updates[0].Items)
	assert.Len(t, *list.updates[0].Items, 3)
	assert.Equal(t, "3", list.model.Badge())
	assert.Equal(t, LoadingMessage, list.model.Message())
	assert.Len(t, list.model.Items(), 3)
}

func TestReporterRunningCount(t *testing.T) {
	bus := NewBus()
	list := &recordingList{}
	r := NewReporter(bus, list, func() string { return "no symbols found" })
	r.Populate(nil)

	bus.Publish(TopicTags, batch(600))
	bus.Publish(TopicTags, batch(600))

	assert.Equal(t, int64(1200), r.Count())
	assert.Equal(t, "1,200", list.model.Badge())

	bus.Publish(TopicTags, tags.Tags{})
	assert.Equal(t, "", list.model.Badge())
	assert.Equal(t, "no symbols found", list.model.Message())
}

func TestReporterRepopulateReplacesSubscriber(t *testing.T) {
	bus := NewBus()
	list := &recordingList{}
	r := NewReporter(bus, list, func() string { return "" })
	r.Populate(nil)
	r.Populate(nil)

	bus.Publish(TopicTags, batch(5))
	assert.Equal(t, "5", list.model.Badge(), "a duplicate subscriber would count twice")

	r.Detach()
	bus.Publish(TopicTags, batch(5))
	assert.Equal(t, "5", list.model.Badge())
}
