package memory

import (
	"regexp"
	"strings"
)

// explicitPatterns match direct "remember this" requests. The captured
// group is the payload to store.
var explicitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)remember that (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)remember this:?\s*(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)please remember (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)can you remember (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)don't forget (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)store this (?:information|fact):?\s*(.+?)(?:\.|$)`),
}

// factPatterns match sentences that carry durable information about
// the user. Ordered by priority: goals, then challenges, then
// preferences, then personal details. When two patterns fire on
// overlapping spans the earlier pattern wins.
var factPatterns = []*regexp.Regexp{
	// Goals
	regexp.MustCompile(`(?i)my goal is (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i want to (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i'm trying to (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i am working on (.+?)(?:\.|$)`),

	// Challenges
	regexp.MustCompile(`(?i)i struggle with (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)my challenge is (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i find it difficult to (.+?)(?:\.|$)`),

	// Preferences
	regexp.MustCompile(`(?i)i prefer (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i like (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i don't like (.+?)(?:\.|$)`),

	// Personal details
	regexp.MustCompile(`(?i)my name is (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i am (.+? years old)(?:\.|$)`),
	regexp.MustCompile(`(?i)i live in (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i work as a (.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)i work at (.+?)(?:\.|$)`),
}

// ExtractExplicit returns the payloads of explicit memory requests in
// text. Payloads of five characters or fewer are dropped as noise.
func ExtractExplicit(text string) []string {
	var out []string
	for _, re := range explicitPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			payload := strings.TrimSpace(m[1])
			if len(payload) > 5 {
				out = append(out, payload)
			}
		}
	}
	return out
}

// ExtractFacts scans user text for sentences matching the fact patterns
// and returns the full matched spans, deduplicated. Spans shorter than
// ten characters are dropped. When patterns overlap on the same span,
// the highest-priority pattern's match is kept.
func ExtractFacts(text string) []string {
	type span struct{ start, end int }
	var claimed []span

	overlaps := func(a span) bool {
		for _, b := range claimed {
			if a.start < b.end && b.start < a.end {
				return true
			}
		}
		return false
	}

	var facts []string
	for _, re := range factPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			sp := span{loc[0], loc[1]}
			if overlaps(sp) {
				continue
			}
			fact := strings.TrimSpace(text[loc[0]:loc[1]])
			fact = strings.TrimRight(fact, ".")
			if len(fact) > 10 {
				claimed = append(claimed, sp)
				facts = append(facts, fact)
			}
		}
	}

	return filterSimilar(facts)
}

// filterSimilar drops facts too similar to an earlier fact in the same
// batch, preserving first-seen order.
func filterSimilar(facts []string) []string {
	if len(facts) == 0 {
		return nil
	}

	unique := []string{facts[0]}
	for _, fact := range facts[1:] {
		dup := false
		for _, u := range unique {
			if Similarity(fact, u) > SimilarityThreshold {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, fact)
		}
	}
	return unique
}
