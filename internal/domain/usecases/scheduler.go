package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

// DefaultSegmentPause is the "thinking" cadence between two segments of one reply.
const DefaultSegmentPause = 400 * time.Millisecond

// ResponseScheduler splits a response into segments and emits them one at a time.
// It has no side effects; the consumer renders what it receives.
type ResponseScheduler struct {
	clock     ports.Clock
	pause     time.Duration
	delimiter string
}

// NewResponseScheduler creates a scheduler pacing segments with clock.
func NewResponseScheduler(clock ports.Clock, pause time.Duration, delimiter string) *ResponseScheduler {
	if pause < 0 {
		pause = DefaultSegmentPause
	}
	if delimiter == "" {
		delimiter = entities.DefaultDelimiter
	}
	return &ResponseScheduler{
		clock:     clock,
		pause:     pause,
		delimiter: delimiter,
	}
}

// Segments splits response on delimiter and trims each part.
// The result always has 1 + strings.Count(response, delimiter) elements; empty parts are kept.
func Segments(response, delimiter string) []string {
	if delimiter == "" {
		return []string{strings.TrimSpace(response)}
	}
	parts := strings.Split(response, delimiter)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Deliver streams the entry's segments in order on an unbuffered channel.
//
// Segment i+1 is not produced until segment i has been received and the pause after it
// has elapsed. There is no pause after the last segment: the channel closes as soon as the
// last segment is taken. Callers must drain the channel; ctx only stops the producer on shutdown.
func (s *ResponseScheduler) Deliver(ctx context.Context, entry entities.Entry) <-chan entities.DisplayEvent {
	segments := Segments(entry.Response, s.delimiter)
	ch := make(chan entities.DisplayEvent)

	go func() {
		defer close(ch)
		for i, text := range segments {
			if i > 0 {
				select {
				case <-s.clock.After(s.pause):
				case <-ctx.Done():
					return
				}
			}

			event := entities.DisplayEvent{
				Role:  entities.RoleBot,
				Text:  text,
				Index: i,
				Total: len(segments),
			}
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
