// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// KnowledgeSource provides the knowledge-base records at startup.
type KnowledgeSource interface {
	// Load returns the entries in list order.
	Load(ctx context.Context) ([]entities.Entry, error)

	// Describe names the source for logs and diagnostics (a path, "embedded").
	Describe() string
}

// Renderer displays events to the user (terminal, SSE stream, buffer).
type Renderer interface {
	Render(ctx context.Context, event entities.DisplayEvent) error
}

// SessionStore persists the transcript of the current session.
// The destructive reset clears it.
type SessionStore interface {
	// Append records one displayed event for a session.
	Append(ctx context.Context, sessionID string, event entities.DisplayEvent) error

	// History returns a session's events in display order.
	History(ctx context.Context, sessionID string) ([]entities.DisplayEvent, error)

	// Clear removes all stored sessions.
	Clear(ctx context.Context) error
}

// Resetter restarts the session after persisted storage was cleared.
type Resetter interface {
	// Reset starts a fresh session and returns its id.
	Reset(ctx context.Context) (string, error)
}

// Clock abstracts time so the delivery cadence can be tested deterministically.
type Clock interface {
	// After waits for d, like time.After.
	After(d time.Duration) <-chan time.Time

	// AfterFunc runs f in its own goroutine after d, like time.AfterFunc.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc.
type Timer interface {
	Stop() bool
}

// FileWatcher monitors a path for changes.
type FileWatcher interface {
	// Watch starts monitoring and emits events.
	Watch(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// String names the operation for logs.
func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Observer receives engine events for metrics.
type Observer interface {
	Matched(entryID string, score int, fallback bool)
	Rejected(reason string)
	Delivered(segments int, elapsed time.Duration)
	ResetScheduled()
	KnowledgeLoaded(entries int)
}
