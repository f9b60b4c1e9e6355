package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock implements ports.Clock.
// In instant mode After fires immediately; in manual mode each wait is handed to the test on waits.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration
	timers []*fakeTimer
	waits  chan chan time.Time
}

func newInstantClock() *fakeClock {
	return &fakeClock{}
}

func newManualClock() *fakeClock {
	return &fakeClock{waits: make(chan chan time.Time)}
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if c.waits != nil {
		c.waits <- ch
		return ch
	}
	ch <- time.Time{}
	return ch
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func (c *fakeClock) Timers() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

// FireTimers runs every armed timer synchronously.
func (c *fakeClock) FireTimers() {
	for _, t := range c.Timers() {
		t.fire()
	}
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.f()
}

// bufferRenderer implements ports.Renderer by collecting events.
type bufferRenderer struct {
	mu       sync.Mutex
	events   []entities.DisplayEvent
	onRender func(entities.DisplayEvent)
	err      error
}

func (r *bufferRenderer) Render(ctx context.Context, event entities.DisplayEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	hook := r.onRender
	r.mu.Unlock()
	if hook != nil {
		hook(event)
	}
	return r.err
}

func (r *bufferRenderer) Events() []entities.DisplayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.DisplayEvent(nil), r.events...)
}

func (r *bufferRenderer) Texts() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Text)
	}
	return out
}

// mockStore implements ports.SessionStore for testing
type mockStore struct {
	mu       sync.Mutex
	sessions map[string][]entities.DisplayEvent
	cleared  int
	clearErr error
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string][]entities.DisplayEvent)}
}

func (m *mockStore) Append(ctx context.Context, sessionID string, event entities.DisplayEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], event)
	return nil
}

func (m *mockStore) History(ctx context.Context, sessionID string) ([]entities.DisplayEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.DisplayEvent(nil), m.sessions[sessionID]...), nil
}

func (m *mockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	m.sessions = make(map[string][]entities.DisplayEvent)
	return m.clearErr
}

// mockResetter implements ports.Resetter and records the call order against the store.
// With release set, Reset signals entered and blocks until release is closed.
type mockResetter struct {
	store        *mockStore
	calls        int
	clearedFirst bool
	nextID       string
	err          error

	entered chan struct{}
	release chan struct{}
}

func (m *mockResetter) Reset(ctx context.Context) (string, error) {
	m.calls++
	if m.store != nil {
		m.store.mu.Lock()
		m.clearedFirst = m.store.cleared > 0
		m.store.mu.Unlock()
	}
	if m.release != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	return m.nextID, m.err
}

// mockSource implements ports.KnowledgeSource for testing
type mockSource struct {
	mu      sync.Mutex
	entries []entities.Entry
	err     error
	loads   int
}

func (m *mockSource) Load(ctx context.Context) ([]entities.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	return append([]entities.Entry(nil), m.entries...), nil
}

func (m *mockSource) Describe() string {
	return "mock"
}

func (m *mockSource) set(entries []entities.Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.err = err
}

// mockWatcher implements ports.FileWatcher with a test-driven channel.
type mockWatcher struct {
	events   chan ports.FileEvent
	watchErr error
}

func (m *mockWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	return m.events, nil
}

func (m *mockWatcher) Stop() error {
	close(m.events)
	return nil
}

// recordingObserver implements ports.Observer.
type recordingObserver struct {
	mu        sync.Mutex
	matched   []string
	fallbacks int
	rejected  []string
	segments  []int
	resets    int
	loaded    []int
}

func (o *recordingObserver) Matched(id string, score int, fallback bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.matched = append(o.matched, id)
	if fallback {
		o.fallbacks++
	}
}

func (o *recordingObserver) Rejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

func (o *recordingObserver) Delivered(segments int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.segments = append(o.segments, segments)
}

func (o *recordingObserver) ResetScheduled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

func (o *recordingObserver) KnowledgeLoaded(entries int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, entries)
}

var errBoom = errors.New("boom")

// scenarioKB is the GREET / FALLBACK_CORE knowledge base.
func scenarioKB() *entities.KnowledgeBase {
	return entities.NewKnowledgeBase("scenario", []entities.Entry{
		{ID: "GREET", Keywords: []string{"hello", "hi"}, Priority: 5, Response: "Hi there![BREAK]How can I help?"},
		{ID: "FALLBACK_CORE", Keywords: []string{}, Priority: 1, Response: "I don't understand."},
	})
}
