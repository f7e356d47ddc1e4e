package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/navto"
	"github.com/xonecas/projsym/internal/progress"
	"github.com/xonecas/projsym/internal/tags"
)

const testDelay = 20 * time.Millisecond

type fakeEditor struct{ path string }

func (e fakeEditor) ActivePath() (string, bool) { return e.path, e.path != "" }

type fakeSession struct {
	mu      sync.Mutex
	queries []string
	navto   func(ctx context.Context, req navto.Request) (*navto.Response, error)
}

func (s *fakeSession) Session(context.Context, string) (navto.Session, error) { return s, nil }

func (s *fakeSession) Open(context.Context, string) error { return nil }

func (s *fakeSession) Navto(ctx context.Context, req navto.Request) (*navto.Response, error) {
	s.mu.Lock()
	s.queries = append(s.queries, req.SearchValue)
	fn := s.navto
	s.mu.Unlock()
	if fn == nil {
		return &navto.Response{}, nil
	}
	return fn(ctx, req)
}

func (s *fakeSession) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type recordingList struct {
	mu      sync.Mutex
	updates []listview.State
	model   listview.Model
}

func (l *recordingList) Update(st listview.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, st)
	l.model.Apply(st)
}

func (l *recordingList) Visible() bool { return true }

func (l *recordingList) Items() tags.Tags {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model.Items()
}

func (l *recordingList) Updates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates)
}

func (l *recordingList) Message() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model.Message()
}

func (l *recordingList) Badge() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model.Badge()
}

type batches struct {
	mu  sync.Mutex
	got []int
}

func (b *batches) record(ts tags.Tags) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, len(ts))
}

func (b *batches) sizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.got...)
}

func symbols(names ...string) *navto.Response {
	nodes := make([]navto.Node, len(names))
	for i, n := range names {
		nodes[i] = navto.Entry(navto.Item{Name: n, Kind: "function", File: "a.go", Start: navto.Location{Line: i + 1, Offset: 1}})
	}
	root := navto.Group(nodes...)
	return &navto.Response{Body: &root}
}

type harness struct {
	coord   *Coordinator
	session *fakeSession
	list    *recordingList
	bus     *progress.Bus
	seen    *batches
}

func newHarness(t *testing.T, path string) *harness {
	t.Helper()
	h := &harness{
		session: &fakeSession{},
		list:    &recordingList{},
		bus:     progress.NewBus(),
		seen:    &batches{},
	}
	h.bus.Subscribe(progress.TopicTags, h.seen.record)
	h.coord = New(h.session, fakeEditor{path: path}, h.bus, h.list, Options{Delay: testDelay, Timeout: time.Second})
	t.Cleanup(h.coord.Close)
	return h
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, "a.go")

	q, ok := h.coord.Query()
	assert.False(t, ok)
	assert.Empty(t, q)
	assert.Empty(t, h.coord.Tags())
	assert.Equal(t, MsgEnterQuery, h.coord.EmptyMessage())
}

func TestDebounceIssuesOneRequestForLastText(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return symbols("fooBar"), nil
	}

	for _, q := range []string{"f", "fo", "foo"} {
		h.coord.QueryChanged(q)
		time.Sleep(testDelay / 4)
	}

	require.Eventually(t, func() bool {
		q, ok := h.coord.Query()
		return ok && q == "foo"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"foo"}, h.session.Queries())
	assert.Equal(t, MsgNoSymbols, h.coord.EmptyMessage())
}

func TestResultsCommitToList(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return symbols("alpha", "beta"), nil
	}

	h.coord.QueryChanged("a")

	require.Eventually(t, func() bool { return len(h.list.Items()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "", h.list.Message())
	assert.Equal(t, []int{2}, h.seen.sizes())
	assert.Len(t, h.coord.Tags(), 2)
}

func TestEmptyResultPublishesEmptyBatch(t *testing.T) {
	h := newHarness(t, "a.go")

	h.coord.QueryChanged("zzz")

	require.Eventually(t, func() bool { return len(h.seen.sizes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0}, h.seen.sizes())
	assert.Zero(t, h.list.Updates(), "empty results are committed by the reporter, not the coordinator")
	assert.Equal(t, MsgNoSymbols, h.coord.EmptyMessage())
}

func TestEmptyQueryClearsWithoutRequest(t *testing.T) {
	h := newHarness(t, "a.go")

	h.coord.QueryChanged("abc")
	h.coord.QueryChanged("")

	assert.Equal(t, []int{0}, h.seen.sizes())
	assert.Never(t, func() bool { return len(h.session.Queries()) > 0 }, 4*testDelay, 5*time.Millisecond)
	assert.Empty(t, h.coord.Tags())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	h := newHarness(t, "a.go")
	release := make(chan struct{})
	h.session.navto = func(ctx context.Context, req navto.Request) (*navto.Response, error) {
		if req.SearchValue == "slow" {
			<-release
			return symbols("stale1", "stale2", "stale3"), nil
		}
		return symbols("fresh"), nil
	}

	h.coord.QueryChanged("slow")
	require.Eventually(t, func() bool { return len(h.session.Queries()) == 1 }, time.Second, 5*time.Millisecond)

	h.coord.QueryChanged("fast")
	require.Eventually(t, func() bool {
		q, _ := h.coord.Query()
		return q == "fast"
	}, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(4 * testDelay)

	q, _ := h.coord.Query()
	assert.Equal(t, "fast", q)
	require.Len(t, h.coord.Tags(), 1)
	assert.Equal(t, "fresh", h.coord.Tags()[0].Name)
	assert.Equal(t, []int{1}, h.seen.sizes())
}

func TestSupersededRequestIsCancelled(t *testing.T) {
	h := newHarness(t, "a.go")
	cancelled := make(chan struct{})
	h.session.navto = func(ctx context.Context, req navto.Request) (*navto.Response, error) {
		if req.SearchValue == "first" {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return symbols("x"), nil
	}

	h.coord.QueryChanged("first")
	require.Eventually(t, func() bool { return len(h.session.Queries()) == 1 }, time.Second, 5*time.Millisecond)
	h.coord.QueryChanged("second")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("first request was not cancelled")
	}
	require.Eventually(t, func() bool {
		q, _ := h.coord.Query()
		return q == "second"
	}, time.Second, 5*time.Millisecond)
}

func TestFailureKeepsQueryAndPublishesEmpty(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return nil, errors.New("server exploded")
	}

	h.coord.QueryChanged("boom")

	require.Eventually(t, func() bool { return len(h.seen.sizes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0}, h.seen.sizes())
	_, ok := h.coord.Query()
	assert.False(t, ok, "failed request must not advance the settled query")
	assert.Equal(t, MsgEnterQuery, h.coord.EmptyMessage())
}

func TestResolverErrorIsContained(t *testing.T) {
	bus := progress.NewBus()
	seen := &batches{}
	bus.Subscribe(progress.TopicTags, seen.record)
	coord := New(navto.Chain(), fakeEditor{path: "a.go"}, bus, &recordingList{}, Options{Delay: testDelay})
	t.Cleanup(coord.Close)

	coord.QueryChanged("x")

	require.Eventually(t, func() bool { return len(seen.sizes()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0}, seen.sizes())
}

func TestNoActiveDocumentSkipsRequest(t *testing.T) {
	h := newHarness(t, "")

	h.coord.QueryChanged("abc")

	assert.Never(t, func() bool {
		return len(h.session.Queries()) > 0 || len(h.seen.sizes()) > 0
	}, 4*testDelay, 5*time.Millisecond)
}

func TestStopCancelsPendingDebounce(t *testing.T) {
	h := newHarness(t, "a.go")

	h.coord.QueryChanged("abc")
	h.coord.Stop()

	assert.Never(t, func() bool { return len(h.session.Queries()) > 0 }, 4*testDelay, 5*time.Millisecond)
}

func TestCloseWaitsAndSilences(t *testing.T) {
	h := newHarness(t, "a.go")
	started := make(chan struct{})
	h.session.navto = func(ctx context.Context, req navto.Request) (*navto.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	h.coord.QueryChanged("abc")
	<-started

	done := make(chan struct{})
	go func() {
		h.coord.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	h.coord.QueryChanged("")
	h.coord.QueryChanged("more")
	assert.Empty(t, h.seen.sizes())
}

func TestRequestStartKeepsNewerDebounce(t *testing.T) {
	h := newHarness(t, "a.go")

	// "ab" is typed while the settled "a" is being dispatched.
	h.coord.QueryChanged("ab")
	h.coord.startTask("a")

	require.Eventually(t, func() bool {
		q, ok := h.coord.Query()
		return ok && q == "ab"
	}, 10*testDelay, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "ab"}, h.session.Queries())
}

func TestSupersededTimerDoesNotSettle(t *testing.T) {
	h := newHarness(t, "a.go")

	h.coord.QueryChanged("x")
	h.coord.mu.Lock()
	stale := h.coord.timerGen - 1
	h.coord.mu.Unlock()

	h.coord.settle(stale)
	require.Eventually(t, func() bool { return len(h.session.Queries()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(4 * testDelay)
	assert.Equal(t, []string{"x"}, h.session.Queries())
}

func TestClearDuringCommitWins(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return symbols("alpha", "beta"), nil
	}
	var once sync.Once
	h.bus.Subscribe(progress.TopicTags, func(ts tags.Tags) {
		if len(ts) > 0 {
			once.Do(func() { h.coord.QueryChanged("") })
		}
	})

	h.coord.QueryChanged("a")

	require.Eventually(t, func() bool { return len(h.seen.sizes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{2, 0}, h.seen.sizes(), "the clear is published after the results it replaces")
	assert.Empty(t, h.list.Items())
	assert.Zero(t, h.list.Updates())
	assert.Empty(t, h.coord.Tags())
}

func TestConcurrentClearLeavesListEmpty(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return symbols("alpha"), nil
	}
	reporter := progress.NewReporter(h.bus, h.list, h.coord.EmptyMessage)
	reporter.Populate(nil)

	for range 20 {
		h.coord.QueryChanged("a")
		time.Sleep(testDelay + testDelay/2)
		h.coord.QueryChanged("")

		assert.Eventually(t, func() bool { return len(h.list.Items()) == 0 }, time.Second, time.Millisecond)
	}
	assert.Empty(t, h.coord.Tags())
}

func TestFailureAfterSuccessReportsNoSymbols(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(_ context.Context, req navto.Request) (*navto.Response, error) {
		if req.SearchValue == "bad" {
			return nil, errors.New("server exploded")
		}
		return symbols("alpha", "beta"), nil
	}
	reporter := progress.NewReporter(h.bus, h.list, h.coord.EmptyMessage)
	reporter.Populate(nil)
	assert.Equal(t, MsgEnterQuery, h.list.Message())

	h.coord.QueryChanged("good")
	require.Eventually(t, func() bool { return len(h.list.Items()) == 2 }, time.Second, 5*time.Millisecond)

	reporter.Populate(h.coord.Tags())
	assert.Equal(t, progress.LoadingMessage, h.list.Message())
	assert.Equal(t, "2", h.list.Badge())

	h.coord.QueryChanged("bad")
	require.Eventually(t, func() bool { return h.list.Message() == MsgNoSymbols }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "", h.list.Badge())
	assert.Empty(t, h.list.Items())
	q, _ := h.coord.Query()
	assert.Equal(t, "good", q)
}

func TestFailureBeforeAnySuccessAsksForQuery(t *testing.T) {
	h := newHarness(t, "a.go")
	h.session.navto = func(context.Context, navto.Request) (*navto.Response, error) {
		return nil, errors.New("server exploded")
	}
	reporter := progress.NewReporter(h.bus, h.list, h.coord.EmptyMessage)
	reporter.Populate(nil)
	before := h.list.Updates()

	h.coord.QueryChanged("bad")
	require.Eventually(t, func() bool { return h.list.Updates() > before }, time.Second, 5*time.Millisecond)
	assert.Equal(t, MsgEnterQuery, h.list.Message())
	assert.Equal(t, "", h.list.Badge())
	assert.Empty(t, h.list.Items())
	assert.Equal(t, []string{"bad"}, h.session.Queries())
}
