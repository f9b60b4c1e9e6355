package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

type snapshotRecorder struct {
	swapped chan *entities.KnowledgeBase
}

func (r *snapshotRecorder) Swap(kb *entities.KnowledgeBase) {
	r.swapped <- kb
}

func validEntries() []entities.Entry {
	return []entities.Entry{
		{ID: "GREET", Keywords: []string{"hello"}, Priority: 5, Response: "Hi!"},
		{ID: entities.DefaultFallbackID, Priority: 1, Response: "?"},
	}
}

func TestReload_LoadValid(t *testing.T) {
	obs := &recordingObserver{}
	uc := NewReloadUseCase(&mockSource{entries: validEntries()}, "", obs, nil)

	kb, err := uc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, kb.Len())
	assert.Equal(t, "mock", kb.Source())
	assert.Equal(t, []int{2}, obs.loaded)
}

func TestReload_LoadFailureDegradesToEmpty(t *testing.T) {
	uc := NewReloadUseCase(&mockSource{err: errBoom}, "", nil, nil)

	kb, err := uc.Load(context.Background())
	require.Error(t, err)
	require.NotNil(t, kb)
	assert.Zero(t, kb.Len())

	var le *entities.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "mock", le.Source)
	assert.ErrorIs(t, err, errBoom)
}

func TestReload_KeepsAdapterLoadError(t *testing.T) {
	cause := &entities.LoadError{Source: "kb.yaml", Err: errBoom}
	uc := NewReloadUseCase(&mockSource{err: cause}, "", nil, nil)

	_, err := uc.Load(context.Background())
	var le *entities.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "kb.yaml", le.Source)
}

func TestReload_MalformedSchemaIsLoadError(t *testing.T) {
	uc := NewReloadUseCase(&mockSource{entries: []entities.Entry{
		{ID: "BAD", Keywords: []string{"x"}, Priority: -2},
	}}, "", nil, nil)

	kb, err := uc.Load(context.Background())
	require.Error(t, err)
	assert.Zero(t, kb.Len())

	var le *entities.LoadError
	assert.True(t, errors.As(err, &le))
}

func TestReload_MissingFallbackStillLoads(t *testing.T) {
	uc := NewReloadUseCase(&mockSource{entries: validEntries()[:1]}, "", nil, nil)

	kb, err := uc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, kb.Len())
}

func TestReload_CustomFallbackID(t *testing.T) {
	entries := []entities.Entry{{ID: "DEFAULT", Priority: 1, Response: "?"}}
	uc := NewReloadUseCase(&mockSource{entries: entries}, "DEFAULT", nil, nil)

	kb, err := uc.Load(context.Background())
	require.NoError(t, err)
	_, ok := kb.Lookup("DEFAULT")
	assert.True(t, ok)
}

func TestReload_FailedReloadKeepsSnapshot(t *testing.T) {
	rec := &snapshotRecorder{swapped: make(chan *entities.KnowledgeBase, 1)}
	uc := NewReloadUseCase(&mockSource{err: errBoom}, "", nil, nil)

	err := uc.Reload(context.Background(), rec)
	require.Error(t, err)
	assert.Empty(t, rec.swapped)
}

func TestReload_WatchSwapsOnChange(t *testing.T) {
	src := &mockSource{entries: validEntries()}
	watcher := &mockWatcher{events: make(chan ports.FileEvent)}
	rec := &snapshotRecorder{swapped: make(chan *entities.KnowledgeBase, 4)}
	uc := NewReloadUseCase(src, "", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Watch(ctx, watcher, "kb.yaml", rec) }()

	watcher.events <- ports.FileEvent{Path: "kb.yaml", Operation: ports.FileModified}
	select {
	case kb := <-rec.swapped:
		assert.Equal(t, 2, kb.Len())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reload")
	}

	// A broken edit and a delete are both ignored.
	src.set(nil, errBoom)
	watcher.events <- ports.FileEvent{Path: "kb.yaml", Operation: ports.FileModified}
	watcher.events <- ports.FileEvent{Path: "kb.yaml", Operation: ports.FileDeleted}
	assert.Empty(t, rec.swapped)

	cancel()
	require.NoError(t, <-done)
}

func TestReload_WatchStopsWhenWatcherCloses(t *testing.T) {
	watcher := &mockWatcher{events: make(chan ports.FileEvent)}
	uc := NewReloadUseCase(&mockSource{entries: validEntries()}, "", nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- uc.Watch(context.Background(), watcher, "kb.yaml", &snapshotRecorder{swapped: make(chan *entities.KnowledgeBase, 1)})
	}()

	require.NoError(t, watcher.Stop())
	require.NoError(t, <-done)
}

func TestReload_WatchError(t *testing.T) {
	watcher := &mockWatcher{watchErr: errBoom}
	uc := NewReloadUseCase(&mockSource{}, "", nil, nil)

	err := uc.Watch(context.Background(), watcher, "kb.yaml", &snapshotRecorder{})
	assert.ErrorIs(t, err, errBoom)
}
