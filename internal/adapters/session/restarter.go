// Package session provides session identity and restart adapters.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Hook is notified after a restart with the new session id.
type Hook func(ctx context.Context, sessionID string) error

// Restarter implements ports.Resetter. Restarting a session means minting a new id and
// telling every front end to drop its view of the old one.
type Restarter struct {
	mu    sync.Mutex
	hooks []Hook
	newID func() string
}

// NewRestarter creates a Restarter that runs hooks in registration order.
func NewRestarter(hooks ...Hook) *Restarter {
	return &Restarter{hooks: hooks, newID: NewID}
}

// OnReset registers another hook.
func (r *Restarter) OnReset(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Reset mints a new session id and runs the hooks.
// The first hook error is returned; later hooks still run.
func (r *Restarter) Reset(ctx context.Context) (string, error) {
	r.mu.Lock()
	hooks := make([]Hook, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	id := r.newID()
	var first error
	for _, h := range hooks {
		if err := h(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return id, first
}
