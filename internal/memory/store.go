package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimilarityThreshold is the Jaccard score above which a candidate fact
// is considered a duplicate of an existing one.
const SimilarityThreshold = 0.7

// ErrNotFound is returned when a fact ID does not exist in the store.
var ErrNotFound = errors.New("fact not found")

// FileStore persists facts as one JSON file per conversation under a
// base directory. All methods are safe for concurrent use.
//
// Storage failures on the read path are logged and reported as "no
// facts": a broken disk should degrade coaching, not break it.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

// NewFileStore creates the base directory if needed and returns a store.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(conversationID string) string {
	// Conversation IDs are UUIDs we generate, but sanitize anyway since
	// the ID also arrives from clients on follow-up requests.
	name := filepath.Base(conversationID)
	return filepath.Join(s.dir, name+".json")
}

// Append stores a new fact for a conversation. Extracted facts are
// rejected when too similar to an existing fact; explicit facts always
// go through unless byte-identical to an existing fact. Returns the
// stored fact, or nil if the candidate was rejected as a duplicate.
func (s *FileStore) Append(conversationID, content string, source FactSource) (*Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.load(conversationID)

	for _, f := range facts {
		if strings.EqualFold(f.Content, content) {
			return nil, nil
		}
		if source == SourceExtracted && Similarity(f.Content, content) > SimilarityThreshold {
			return nil, nil
		}
	}

	fact := Fact{
		ID:             uuid.New().String(),
		Content:        content,
		Timestamp:      time.Now().UTC(),
		Source:         source,
		ConversationID: conversationID,
	}
	facts = append(facts, fact)

	if err := s.save(conversationID, facts); err != nil {
		return nil, err
	}

	s.logger.Debug("stored fact",
		"conversation_id", conversationID,
		"source", source,
		"content", content,
	)
	return &fact, nil
}

// List returns all facts for a conversation, most recent first.
func (s *FileStore) List(conversationID string) []Fact {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.load(conversationID)
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Timestamp.After(facts[j].Timestamp)
	})
	return facts
}

// Query returns up to limit facts matching the query text, scored by
// how many query terms appear in the fact content. Ties break by
// recency. An empty query returns the most recent facts.
func (s *FileStore) Query(conversationID, query string, limit int) []Fact {
	facts := s.List(conversationID)

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) > 0 {
		type scored struct {
			fact  Fact
			score int
		}
		var matched []scored
		for _, f := range facts {
			content := strings.ToLower(f.Content)
			score := 0
			for _, term := range terms {
				if strings.Contains(content, term) {
					score++
				}
			}
			if score > 0 {
				matched = append(matched, scored{f, score})
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			if matched[i].score != matched[j].score {
				return matched[i].score > matched[j].score
			}
			return matched[i].fact.Timestamp.After(matched[j].fact.Timestamp)
		})
		facts = make([]Fact, len(matched))
		for i, m := range matched {
			facts[i] = m.fact
		}
	}

	if limit > 0 && len(facts) > limit {
		facts = facts[:limit]
	}
	return facts
}

// Update replaces the content of an existing fact.
func (s *FileStore) Update(conversationID, factID, newContent string) (*Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.load(conversationID)
	for i := range facts {
		if facts[i].ID == factID {
			facts[i].Content = newContent
			if err := s.save(conversationID, facts); err != nil {
				return nil, err
			}
			return &facts[i], nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes a fact by ID.
func (s *FileStore) Delete(conversationID, factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.load(conversationID)
	for i := range facts {
		if facts[i].ID == factID {
			facts = append(facts[:i], facts[i+1:]...)
			return s.save(conversationID, facts)
		}
	}
	return ErrNotFound
}

// Summary formats the most important facts for seeding a returning
// user's greeting: explicit facts first, then the most recent, capped
// at seven. Returns "" when there is nothing worth mentioning.
func (s *FileStore) Summary(conversationID string) string {
	facts := s.List(conversationID)
	if len(facts) == 0 {
		return ""
	}

	var important []Fact
	seen := make(map[string]bool)

	for _, f := range facts {
		if f.Source == SourceExplicit && !seen[f.Content] {
			important = append(important, f)
			seen[f.Content] = true
		}
	}
	for _, f := range facts {
		if len(important) >= 7 {
			break
		}
		if !seen[f.Content] {
			important = append(important, f)
			seen[f.Content] = true
		}
	}
	if len(important) > 7 {
		important = important[:7]
	}

	var b strings.Builder
	b.WriteString("Previous session information:\n")
	for _, f := range important {
		fmt.Fprintf(&b, "- %s\n", f.Content)
	}
	return b.String()
}

// load reads the conversation's fact file. Missing files and corrupt
// JSON both come back as an empty slice.
func (s *FileStore) load(conversationID string) []Fact {
	data, err := os.ReadFile(s.path(conversationID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read memory file failed",
				"conversation_id", conversationID,
				"error", err,
			)
		}
		return nil
	}

	var facts []Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		s.logger.Error("corrupt memory file, treating as empty",
			"conversation_id", conversationID,
			"error", err,
		)
		return nil
	}
	return facts
}

func (s *FileStore) save(conversationID string, facts []Fact) error {
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	if err := os.WriteFile(s.path(conversationID), data, 0o644); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	return nil
}
