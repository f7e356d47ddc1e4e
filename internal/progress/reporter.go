package progress

import (
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/tags"
)

// LoadingMessage is shown while a populated list waits for results.
const LoadingMessage = "Loading project symbols…"

// Reporter turns published batches into list updates. Non-empty batches
// bump a running count shown as the badge; an empty batch commits an empty
// list with the message chosen by emptyMessage.
type Reporter struct {
	bus          *Bus
	list         listview.ListView
	emptyMessage func() string

	mu          sync.Mutex
	read        int64
	unsubscribe func()
}

// NewReporter binds a bus to a list view.
func NewReporter(bus *Bus, list listview.ListView, emptyMessage func() string) *Reporter {
	return &Reporter{bus: bus, list: list, emptyMessage: emptyMessage}
}

// Populate shows current (if any), switches the list into loading state and
// installs a fresh subscriber, replacing every previous one. It then replays
// current through the new subscriber.
func (r *Reporter) Populate(current tags.Tags) {
	if len(current) > 0 {
		r.list.Update(listview.State{Items: listview.Items(current)})
	}
	r.list.Update(listview.State{
		LoadingMessage: listview.Text(LoadingMessage),
		LoadingBadge:   listview.Text("0"),
	})

	r.mu.Lock()
	r.read = 0
	r.bus.Clear(TopicTags)
	r.unsubscribe = r.bus.Subscribe(TopicTags, r.handle)
	r.mu.Unlock()

	r.bus.Publish(TopicTags, current)
}

// Detach removes the subscriber installed by Populate.
func (r *Reporter) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Count returns the running number of tags seen since the last Populate.
func (r *Reporter) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read
}

func (r *Reporter) handle(batch tags.Tags) {
	if len(batch) > 0 {
		r.mu.Lock()
		r.read += int64(len(batch))
		read := r.read
		r.mu.Unlock()
		r.list.Update(listview.State{LoadingBadge: listview.Text(humanize.Comma(read))})
		return
	}

	r.list.Update(listview.State{
		LoadingMessage: listview.Text(r.emptyMessage()),
		LoadingBadge:   listview.Text(""),
		Items:          listview.Items(nil),
	})
}
