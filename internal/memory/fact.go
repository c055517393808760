// Package memory stores facts learned about the user across coaching
// sessions. Facts live in one JSON file per conversation, mirroring
// how users expect "what you know about me" to be inspectable and
// editable. Completed sessions are archived separately in SQLite.
package memory

import (
	"strings"
	"time"
)

// FactSource tags where a fact came from.
type FactSource string

const (
	// SourceExplicit marks facts the user directly asked to remember.
	// Explicit facts bypass the similarity filter.
	SourceExplicit FactSource = "explicit"

	// SourceExtracted marks facts the pattern extractor found in
	// normal conversation.
	SourceExtracted FactSource = "extracted"
)

// Fact is one persisted unit of user-stated information.
type Fact struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Timestamp      time.Time  `json:"timestamp"`
	Source         FactSource `json:"source"`
	ConversationID string     `json:"conversation_id"`
}

// Similarity computes the Jaccard overlap of the word sets of two
// strings, case-insensitive. Returns a value in [0, 1].
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
