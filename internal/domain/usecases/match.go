// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces; adapters are injected.
//
// match.go scores knowledge-base entries against user input.
package usecases

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}

// Match scores every entry against input and returns the winner, or a Fallback result.
//
// An entry scores its priority once per keyword (in keyword-list order, duplicates included)
// that occurs as a substring of the normalized input. The leader changes only on a strictly
// greater score, so the earliest entry wins ties. Only a strictly positive best score is a match.
// Callers guard empty input; Match itself is total.
func Match(input string, kb *entities.KnowledgeBase) entities.MatchResult {
	text := Normalize(input)
	lower := cases.Lower(language.Und)

	bestScore := -1
	var best entities.Entry
	for _, e := range kb.Entries() {
		score := scoreEntry(text, e, lower)
		if score > bestScore {
			bestScore = score
			best = e
		}
	}

	if bestScore > 0 {
		return entities.MatchResult{Entry: best, Score: bestScore, Matched: true}
	}
	return entities.MatchResult{}
}

// Rank returns every entry's score in list order.
func Rank(input string, kb *entities.KnowledgeBase) []entities.Scored {
	text := Normalize(input)
	lower := cases.Lower(language.Und)

	entries := kb.Entries()
	out := make([]entities.Scored, len(entries))
	for i, e := range entries {
		out[i] = entities.Scored{ID: e.ID, Score: scoreEntry(text, e, lower)}
	}
	return out
}

// Resolve turns a MatchResult into the entry to deliver.
// Fallback resolves to the entry with fallbackID; its absence is a configuration error.
func Resolve(result entities.MatchResult, kb *entities.KnowledgeBase, fallbackID string) (entities.Entry, error) {
	if result.Matched {
		return result.Entry, nil
	}
	entry, ok := kb.Lookup(fallbackID)
	if !ok {
		return entities.Entry{}, fmt.Errorf("%w: fallback entry %q missing from knowledge base", entities.ErrConfiguration, fallbackID)
	}
	return entry, nil
}

// scoreEntry sums the entry priority for each keyword found in text.
// Empty keywords never match.
func scoreEntry(text string, e entities.Entry, lower cases.Caser) int {
	score := 0
	for _, k := range e.Keywords {
		if k == "" {
			continue
		}
		if strings.Contains(text, lower.String(k)) {
			score += e.Priority
		}
	}
	return score
}
