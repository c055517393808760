// Package coach orchestrates coaching conversations: it assembles
// prompts from the persona, stored facts, and recent turns, calls the
// configured LLM, and feeds completed exchanges to fact extraction.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nholloway/solace-agent/internal/google"
	"github.com/nholloway/solace-agent/internal/llm"
	"github.com/nholloway/solace-agent/internal/memory"
)

// historyLimit bounds how many prior turns go into each LLM request.
const historyLimit = 10

// factLimit bounds how many stored facts are injected as context.
const factLimit = 5

// FactStore is the subset of the memory store the coach needs.
type FactStore interface {
	Append(conversationID, content string, source memory.FactSource) (*memory.Fact, error)
	Query(conversationID, query string, limit int) []memory.Fact
	Summary(conversationID string) string
}

// SessionArchiver records completed sessions.
type SessionArchiver interface {
	Save(s memory.ArchivedSession) error
}

// Integrations is the calendar/task surface the coach can reach for.
type Integrations interface {
	IsAuthorized() bool
	ListUpcomingEvents(ctx context.Context, max int) ([]google.Event, error)
	ListTasks(ctx context.Context, max int) ([]google.Task, error)
	CreateTask(ctx context.Context, title string, due *time.Time) (*google.Task, error)
}

// IntegrationData is attached to a reply when a calendar or task
// lookup fired during the turn.
type IntegrationData struct {
	Enabled        bool           `json:"enabled"`
	Used           bool           `json:"integration_used"`
	CalendarEvents []google.Event `json:"calendar_events"`
	Tasks          []google.Task  `json:"tasks"`
}

// Reply is the result of one coaching turn.
type Reply struct {
	Text        string
	Insights    []string
	Integration *IntegrationData
}

// Coach holds the in-memory state of one conversation.
type Coach struct {
	ID string

	llm          llm.Client
	store        FactStore
	archive      SessionArchiver
	integrations Integrations
	logger       *slog.Logger
	opts         llm.Options

	mu         sync.Mutex
	turns      []llm.Message
	stage      int
	usedQuotes map[int]bool
	started    time.Time

	extraction sync.WaitGroup
}

// New creates a coach for a conversation. A zero id starts a fresh
// conversation; passing an existing id resumes its persisted facts.
func New(id string, client llm.Client, store FactStore, archive SessionArchiver, integrations Integrations, opts llm.Options, logger *slog.Logger) *Coach {
	if id == "" {
		id = uuid.New().String()
	}
	return &Coach{
		ID:           id,
		llm:          client,
		store:        store,
		archive:      archive,
		integrations: integrations,
		logger:       logger.With("conversation_id", id),
		opts:         opts,
		usedQuotes:   make(map[int]bool),
		started:      time.Now(),
	}
}

// Greeting opens the session. When prior facts exist for this
// conversation they seed the greeting so returning users feel
// remembered. Falls back to a fixed greeting if the LLM is down.
func (c *Coach) Greeting(ctx context.Context) string {
	prompt := greetingPrompt
	if summary := c.store.Summary(c.ID); summary != "" {
		prompt += "\n\n" + summary + "\nWeave one detail from this into the greeting naturally."
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "system", Content: prompt},
	}

	greeting, err := c.llm.Complete(ctx, messages, c.opts)
	if err != nil {
		c.logger.Error("greeting generation failed", "error", err)
		greeting = fallbackGreeting
	}
	greeting = strings.TrimSpace(greeting)

	c.mu.Lock()
	c.turns = append(c.turns, llm.Message{Role: "assistant", Content: greeting})
	c.mu.Unlock()

	return greeting
}

// Respond processes one user turn. Provider failures surface as a
// fixed fallback reply with the turn history and stage untouched;
// integration failures only omit the integration payload.
func (c *Coach) Respond(ctx context.Context, userText string) Reply {
	start := time.Now()

	// Explicit memory requests are stored immediately, before anything
	// can fail.
	for _, payload := range memory.ExtractExplicit(userText) {
		if _, err := c.store.Append(c.ID, payload, memory.SourceExplicit); err != nil {
			c.logger.Error("failed to store explicit memory", "error", err)
		}
	}

	integration := c.checkIntegrations(ctx, userText)

	messages := c.buildMessages(userText, integration)

	reply, err := c.llm.Complete(ctx, messages, c.opts)
	if err != nil {
		c.logger.Error("completion failed", "error", err)
		c.mu.Lock()
		c.turns = append(c.turns, llm.Message{Role: "user", Content: userText})
		c.mu.Unlock()
		return Reply{Text: fallbackReply, Integration: integration}
	}
	reply = strings.TrimSpace(reply)

	c.mu.Lock()
	c.turns = append(c.turns,
		llm.Message{Role: "user", Content: userText},
		llm.Message{Role: "assistant", Content: reply},
	)
	c.stage++
	c.mu.Unlock()

	// Extraction runs off the request path; the reply never waits on it.
	c.extraction.Add(1)
	go func() {
		defer c.extraction.Done()
		c.extractFacts(userText)
	}()

	insights := c.generateInsights(ctx, userText, reply)

	c.logger.Debug("coaching turn complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"insights", len(insights),
	)

	return Reply{Text: reply, Insights: insights, Integration: integration}
}

// End closes the session: a short summary is generated, truncated to
// about a hundred words, and archived. Returns the summary text.
func (c *Coach) End(ctx context.Context) string {
	c.extraction.Wait()

	c.mu.Lock()
	turnCount := len(c.turns)
	messages := make([]llm.Message, 0, len(c.turns)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, c.turns...)
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Please conclude our session with a summary of about 100 words covering the main points and any actions I agreed to.",
	})
	c.mu.Unlock()

	summary, err := c.llm.Complete(ctx, messages, c.opts)
	if err != nil {
		c.logger.Error("session summary failed", "error", err)
		summary = fmt.Sprintf("Coaching session with %d exchanges.", turnCount/2)
	}
	summary = truncateSummary(strings.TrimSpace(summary), 100)

	if c.archive != nil {
		err := c.archive.Save(memory.ArchivedSession{
			ID:             uuid.New().String(),
			ConversationID: c.ID,
			Summary:        summary,
			Turns:          turnCount,
			CreatedAt:      c.started,
		})
		if err != nil {
			c.logger.Error("failed to archive session", "error", err)
		}
	}

	return summary
}

// TurnCount returns the number of stored turns, greeting included.
func (c *Coach) TurnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Stage returns the current session stage counter.
func (c *Coach) Stage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// buildMessages assembles the full LLM request for a user turn.
func (c *Coach) buildMessages(userText string, integration *IntegrationData) []llm.Message {
	c.mu.Lock()
	stage := c.stage
	quote, quoteIdx := quoteForStage(stage, c.usedQuotes)
	c.usedQuotes[quoteIdx] = true

	history := c.turns
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	history = append([]llm.Message(nil), history...)
	c.mu.Unlock()

	var system strings.Builder
	system.WriteString(systemPrompt)
	fmt.Fprintf(&system, "\n\nGuiding quotation for this part of the session (theme: %s):\n%q\n- %s",
		quote.Theme, quote.Text, quote.Source)

	if facts := c.store.Query(c.ID, userText, factLimit); len(facts) > 0 {
		system.WriteString("\n\nWhat you know about the user:\n")
		for _, f := range facts {
			fmt.Fprintf(&system, "- %s\n", f.Content)
		}
	}

	if integration != nil && integration.Used {
		if len(integration.CalendarEvents) > 0 {
			system.WriteString("\nUser's upcoming events:\n")
			for i, e := range integration.CalendarEvents {
				if i == 3 {
					break
				}
				fmt.Fprintf(&system, "- %s at %s\n", e.Summary, e.Start)
			}
		}
		if len(integration.Tasks) > 0 {
			system.WriteString("\nUser's current tasks:\n")
			for i, t := range integration.Tasks {
				if i == 3 {
					break
				}
				fmt.Fprintf(&system, "- %s\n", t.Title)
			}
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system.String()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userText})
	return messages
}

// checkIntegrations runs the keyword heuristics and, when they fire,
// fetches calendar or task data. Always best-effort: any failure is
// logged and the payload omitted.
func (c *Coach) checkIntegrations(ctx context.Context, userText string) *IntegrationData {
	if c.integrations == nil || !c.integrations.IsAuthorized() {
		return nil
	}

	data := &IntegrationData{Enabled: true}

	if wantsCalendar(userText) {
		events, err := c.integrations.ListUpcomingEvents(ctx, 5)
		if err != nil {
			c.logger.Warn("calendar lookup failed", "error", err)
		} else {
			data.CalendarEvents = events
			data.Used = true
		}
	}

	if wantsTaskCreation(userText) {
		if title := extractTaskTitle(userText); title != "" {
			due := extractDueDate(userText, time.Now())
			task, err := c.integrations.CreateTask(ctx, title, due)
			if err != nil {
				c.logger.Warn("task creation failed", "error", err)
			} else {
				data.Tasks = append(data.Tasks, *task)
				data.Used = true
			}
		}
	} else if wantsTasks(userText) {
		tasks, err := c.integrations.ListTasks(ctx, 10)
		if err != nil {
			c.logger.Warn("task lookup failed", "error", err)
		} else {
			data.Tasks = tasks
			data.Used = true
		}
	}

	if !data.Used {
		return nil
	}
	return data
}

// extractFacts stores pattern-matched facts from a user turn.
func (c *Coach) extractFacts(userText string) {
	for _, fact := range memory.ExtractFacts(userText) {
		if _, err := c.store.Append(c.ID, fact, memory.SourceExtracted); err != nil {
			c.logger.Error("failed to store extracted fact", "error", err)
		}
	}
}

// truncateSummary cuts text to roughly maxWords, preferring to break
// at the end of a sentence.
func truncateSummary(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	truncated := strings.Join(words[:maxWords], " ")
	if idx := strings.LastIndexAny(truncated, ".!?"); idx > len(truncated)/2 {
		return truncated[:idx+1]
	}
	return truncated + "..."
}
