package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration marks a knowledge base that cannot serve replies: the fallback entry is missing.
var ErrConfiguration = errors.New("configuration error")

// LoadError reports a knowledge-base source that was unavailable or malformed.
// The engine degrades to an empty knowledge base when it sees one.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading knowledge base from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Validate checks the record schema: ids present, positive priorities,
// keywords on every entry but the fallback, and at most one fallback entry.
// A missing fallback is not reported here; it is a configuration error surfaced at match time.
func Validate(entries []Entry, fallbackID string) error {
	var errs []error
	fallbacks := 0
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing id", i))
			continue
		}
		if e.Priority <= 0 {
			errs = append(errs, fmt.Errorf("entry %q: priority must be positive, got %d", e.ID, e.Priority))
		}
		if e.ID == fallbackID {
			fallbacks++
			continue
		}
		if len(e.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("entry %q: no keywords", e.ID))
		}
	}
	if fallbacks > 1 {
		errs = append(errs, fmt.Errorf("fallback id %q appears %d times", fallbackID, fallbacks))
	}
	return errors.Join(errs...)
}
