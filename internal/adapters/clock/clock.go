// Package clock provides the wall-clock adapter for ports.Clock.
package clock

import (
	"time"

	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

// Real implements ports.Clock with the time package.
type Real struct{}

// New returns the wall clock.
func New() Real {
	return Real{}
}

// After waits for d.
func (Real) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// AfterFunc runs f after d in its own goroutine.
func (Real) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
