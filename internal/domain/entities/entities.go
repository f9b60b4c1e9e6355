// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

const (
	// DefaultFallbackID is the reserved id of the entry returned when nothing else scores.
	DefaultFallbackID = "FALLBACK_CORE"

	// DefaultDelimiter separates display segments inside a response.
	DefaultDelimiter = "[BREAK]"
)

// Entry is one knowledge-base record mapping keywords to a canned response.
type Entry struct {
	ID       string   `yaml:"id" json:"id"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Priority int      `yaml:"priority" json:"priority"`
	Response string   `yaml:"response" json:"response"`
}

// clone returns a deep copy so callers never share the keyword slice.
func (e Entry) clone() Entry {
	out := e
	if e.Keywords != nil {
		out.Keywords = append([]string(nil), e.Keywords...)
	}
	return out
}

// KnowledgeBase is an immutable, ordered list of entries.
// It is built once from a snapshot and never mutated afterwards; list order is the tie-break order.
type KnowledgeBase struct {
	entries []Entry
	byID    map[string]int
	source  string
	loaded  time.Time
}

// NewKnowledgeBase copies entries into a new immutable knowledge base.
// When two entries share an id, Lookup returns the first one.
func NewKnowledgeBase(source string, entries []Entry) *KnowledgeBase {
	kb := &KnowledgeBase{
		entries: make([]Entry, len(entries)),
		byID:    make(map[string]int, len(entries)),
		source:  source,
		loaded:  time.Now(),
	}
	for i, e := range entries {
		kb.entries[i] = e.clone()
		if _, dup := kb.byID[e.ID]; !dup {
			kb.byID[e.ID] = i
		}
	}
	return kb
}

// EmptyKnowledgeBase is what a failed load degrades to.
func EmptyKnowledgeBase(source string) *KnowledgeBase {
	return NewKnowledgeBase(source, nil)
}

// Len returns the number of entries.
func (kb *KnowledgeBase) Len() int {
	if kb == nil {
		return 0
	}
	return len(kb.entries)
}

// Entries returns a copy of all entries in list order.
func (kb *KnowledgeBase) Entries() []Entry {
	if kb == nil {
		return nil
	}
	out := make([]Entry, len(kb.entries))
	for i, e := range kb.entries {
		out[i] = e.clone()
	}
	return out
}

// Lookup finds an entry by id.
func (kb *KnowledgeBase) Lookup(id string) (Entry, bool) {
	if kb == nil {
		return Entry{}, false
	}
	i, ok := kb.byID[id]
	if !ok {
		return Entry{}, false
	}
	return kb.entries[i].clone(), true
}

// Source describes where the snapshot came from (file path or "embedded").
func (kb *KnowledgeBase) Source() string {
	if kb == nil {
		return ""
	}
	return kb.source
}

// LoadedAt is when the snapshot was built.
func (kb *KnowledgeBase) LoadedAt() time.Time {
	if kb == nil {
		return time.Time{}
	}
	return kb.loaded
}

// MatchResult is either a real match (Matched) or the Fallback signal.
// Entry and Score are only meaningful when Matched is true.
type MatchResult struct {
	Entry   Entry
	Score   int
	Matched bool
}

// Scored pairs an entry id with its keyword score.
type Scored struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// Role tags who a display event belongs to.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// DisplayEvent is one unit handed to a renderer.
// Index and Total locate a bot segment inside its response; user events carry 0/1.
type DisplayEvent struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}
