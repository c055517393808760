package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nholloway/solace-agent/internal/google"
	"github.com/nholloway/solace-agent/internal/llm"
	"github.com/nholloway/solace-agent/internal/memory"
)

// fakeLLM returns canned responses in order, or an error when failing.
type fakeLLM struct {
	responses []string
	calls     int
	err       error
	requests  [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	f.requests = append(f.requests, messages)
	if f.err != nil {
		return "", f.err
	}
	var resp string
	if f.calls < len(f.responses) {
		resp = f.responses[f.calls]
	} else if len(f.responses) > 0 {
		resp = f.responses[len(f.responses)-1]
	}
	f.calls++
	return resp, nil
}

type fakeIntegrations struct {
	authorized bool
	events     []google.Event
	tasks      []google.Task
	created    []string
	createdDue []*time.Time
	err        error
}

func (f *fakeIntegrations) IsAuthorized() bool { return f.authorized }

func (f *fakeIntegrations) ListUpcomingEvents(_ context.Context, _ int) ([]google.Event, error) {
	return f.events, f.err
}

func (f *fakeIntegrations) ListTasks(_ context.Context, _ int) ([]google.Task, error) {
	return f.tasks, f.err
}

func (f *fakeIntegrations) CreateTask(_ context.Context, title string, due *time.Time) (*google.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, title)
	f.createdDue = append(f.createdDue, due)
	return &google.Task{ID: "t1", Title: title}, nil
}

func newTestCoach(t *testing.T, client llm.Client, integrations Integrations) (*Coach, *memory.FileStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := memory.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New("", client, store, nil, integrations, llm.Options{}, logger), store
}

func TestGreetingFallsBackWhenLLMFails(t *testing.T) {
	c, _ := newTestCoach(t, &fakeLLM{err: errors.New("down")}, nil)

	got := c.Greeting(context.Background())
	if got != fallbackGreeting {
		t.Errorf("got %q, want fallback greeting", got)
	}
	if c.TurnCount() != 1 {
		t.Errorf("got %d turns, want 1", c.TurnCount())
	}
}

func TestGreetingSeedsFromPriorFacts(t *testing.T) {
	client := &fakeLLM{responses: []string{"Welcome back! How is the meditation going?"}}
	c, store := newTestCoach(t, client, nil)

	if _, err := store.Append(c.ID, "I want to meditate daily", memory.SourceExplicit); err != nil {
		t.Fatalf("append: %v", err)
	}

	c.Greeting(context.Background())

	if len(client.requests) != 1 {
		t.Fatalf("got %d LLM calls, want 1", len(client.requests))
	}
	var found bool
	for _, m := range client.requests[0] {
		if strings.Contains(m.Content, "meditate daily") {
			found = true
		}
	}
	if !found {
		t.Error("prior facts not injected into greeting prompt")
	}
}

func TestRespondSuccess(t *testing.T) {
	client := &fakeLLM{responses: []string{
		"That sounds like a meaningful goal.",
		"1. What draws you to this goal?\n2. How will you start?\n3. Who can support you?",
	}}
	c, _ := newTestCoach(t, client, nil)

	reply := c.Respond(context.Background(), "I want to volunteer more in my community")

	if reply.Text != "That sounds like a meaningful goal." {
		t.Errorf("unexpected reply %q", reply.Text)
	}
	if len(reply.Insights) != 3 {
		t.Errorf("got %d insights, want 3", len(reply.Insights))
	}
	if c.TurnCount() != 2 {
		t.Errorf("got %d turns, want 2", c.TurnCount())
	}
	if c.Stage() != 1 {
		t.Errorf("got stage %d, want 1", c.Stage())
	}
}

func TestRespondLLMFailure(t *testing.T) {
	c, _ := newTestCoach(t, &fakeLLM{err: errors.New("timeout")}, nil)

	reply := c.Respond(context.Background(), "hello")

	if reply.Text != fallbackReply {
		t.Errorf("got %q, want fallback reply", reply.Text)
	}
	if len(reply.Insights) != 0 {
		t.Errorf("got %d insights, want 0", len(reply.Insights))
	}
	// The user turn is kept, the assistant turn is not, and the stage
	// does not advance.
	if c.TurnCount() != 1 {
		t.Errorf("got %d turns, want 1", c.TurnCount())
	}
	if c.Stage() != 0 {
		t.Errorf("got stage %d, want 0", c.Stage())
	}
}

func TestRespondStoresExplicitMemory(t *testing.T) {
	client := &fakeLLM{responses: []string{"Noted!"}}
	c, store := newTestCoach(t, client, nil)

	c.Respond(context.Background(), "Please remember that my daughter's recital is on Friday")

	facts := store.List(c.ID)
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	if facts[0].Source != memory.SourceExplicit {
		t.Errorf("got source %q, want explicit", facts[0].Source)
	}
	if facts[0].Content != "my daughter's recital is on Friday" {
		t.Errorf("unexpected content %q", facts[0].Content)
	}
}

func TestRespondExtractsFactsAsync(t *testing.T) {
	client := &fakeLLM{responses: []string{"That is a wonderful aspiration."}}
	c, store := newTestCoach(t, client, nil)

	c.Respond(context.Background(), "I want to spend more time in nature with my family")
	c.extraction.Wait()

	facts := store.List(c.ID)
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	if facts[0].Source != memory.SourceExtracted {
		t.Errorf("got source %q, want extracted", facts[0].Source)
	}
}

func TestRespondCalendarIntegration(t *testing.T) {
	client := &fakeLLM{responses: []string{"You have a busy week ahead."}}
	integ := &fakeIntegrations{
		authorized: true,
		events:     []google.Event{{ID: "e1", Summary: "Study circle", Start: "2026-09-01T18:00:00Z"}},
	}
	c, _ := newTestCoach(t, client, integ)

	reply := c.Respond(context.Background(), "What's on my calendar this week?")

	if reply.Integration == nil {
		t.Fatal("expected integration data")
	}
	if !reply.Integration.Used {
		t.Error("integration not marked used")
	}
	if len(reply.Integration.CalendarEvents) != 1 {
		t.Errorf("got %d events, want 1", len(reply.Integration.CalendarEvents))
	}
}

func TestRespondTaskCreation(t *testing.T) {
	client := &fakeLLM{responses: []string{"I've noted that task for you."}}
	integ := &fakeIntegrations{authorized: true}
	c, _ := newTestCoach(t, client, integ)

	reply := c.Respond(context.Background(), "Can you add task call my grandmother this weekend?")

	if len(integ.created) != 1 {
		t.Fatalf("got %d created tasks, want 1", len(integ.created))
	}
	if integ.created[0] != "Call my grandmother this weekend" {
		t.Errorf("unexpected task title %q", integ.created[0])
	}
	if reply.Integration == nil || len(reply.Integration.Tasks) != 1 {
		t.Error("created task missing from integration data")
	}
}

func TestRespondTaskCreationParsesDueDate(t *testing.T) {
	client := &fakeLLM{responses: []string{"Task noted."}}
	integ := &fakeIntegrations{authorized: true}
	c, _ := newTestCoach(t, client, integ)

	c.Respond(context.Background(), "Please add task water the garden tomorrow")

	if len(integ.createdDue) != 1 {
		t.Fatalf("got %d created tasks, want 1", len(integ.createdDue))
	}
	due := integ.createdDue[0]
	if due == nil {
		t.Fatal("due date should be parsed from the message")
	}
	tomorrow := time.Now().AddDate(0, 0, 1)
	if due.Year() != tomorrow.Year() || due.YearDay() != tomorrow.YearDay() {
		t.Errorf("due = %v, want tomorrow", due)
	}
}

func TestExtractDueDate(t *testing.T) {
	// A Monday.
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	day := func(d int) time.Time {
		return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}

	tests := []struct {
		text string
		want time.Time
	}{
		{"add task file taxes due tomorrow", day(1)},
		{"create task send report by friday", day(4)},
		{"remind me to finish by next week", day(7)},
		{"add task call mom this weekend", day(5)},
		{"remind me to stretch every day", time.Time{}},
	}
	for _, tt := range tests {
		got := extractDueDate(tt.text, now)
		if tt.want.IsZero() {
			if got != nil {
				t.Errorf("extractDueDate(%q) = %v, want nil", tt.text, got)
			}
			continue
		}
		if got == nil || !got.Equal(tt.want) {
			t.Errorf("extractDueDate(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestExtractTaskTitleMultibyte(t *testing.T) {
	got := extractTaskTitle("add task écrire une lettre")
	if got != "Écrire une lettre" {
		t.Errorf("got %q, want %q", got, "Écrire une lettre")
	}
}

func TestRespondIntegrationFailureDoesNotBlockReply(t *testing.T) {
	client := &fakeLLM{responses: []string{"Let's focus on what matters today."}}
	integ := &fakeIntegrations{authorized: true, err: errors.New("quota exceeded")}
	c, _ := newTestCoach(t, client, integ)

	reply := c.Respond(context.Background(), "What's on my calendar?")

	if reply.Text != "Let's focus on what matters today." {
		t.Errorf("reply should not be affected by integration failure, got %q", reply.Text)
	}
	if reply.Integration != nil {
		t.Error("expected integration data to be omitted on failure")
	}
}

func TestRespondUnauthorizedIntegration(t *testing.T) {
	client := &fakeLLM{responses: []string{"I can't see your calendar, but tell me about your week."}}
	integ := &fakeIntegrations{authorized: false}
	c, _ := newTestCoach(t, client, integ)

	reply := c.Respond(context.Background(), "What's on my calendar today?")

	if reply.Text == fallbackReply {
		t.Error("chat flow must not fail on unauthorized integration")
	}
	if reply.Integration != nil {
		t.Error("expected no integration data when unauthorized")
	}
}

func TestEndArchivesSession(t *testing.T) {
	client := &fakeLLM{responses: []string{
		"Great to hear about your goals.",
		"1. What inspired this goal?",
		"We discussed your volunteering goals and you committed to one small step this week.",
	}}
	archive := &captureArchive{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := memory.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	c := New("", client, store, archive, nil, llm.Options{}, logger)

	c.Respond(context.Background(), "I want to volunteer more")
	summary := c.End(context.Background())

	if summary == "" {
		t.Fatal("expected a summary")
	}
	if len(archive.saved) != 1 {
		t.Fatalf("got %d archived sessions, want 1", len(archive.saved))
	}
	if archive.saved[0].ConversationID != c.ID {
		t.Errorf("archived wrong conversation %q", archive.saved[0].ConversationID)
	}
	if archive.saved[0].Turns != 2 {
		t.Errorf("got %d turns, want 2", archive.saved[0].Turns)
	}
}

type captureArchive struct {
	saved []memory.ArchivedSession
}

func (a *captureArchive) Save(s memory.ArchivedSession) error {
	a.saved = append(a.saved, s)
	return nil
}

func TestTruncateSummary(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
		want     string
	}{
		{
			name:     "short text unchanged",
			text:     "A short summary.",
			maxWords: 100,
			want:     "A short summary.",
		},
		{
			name:     "cuts at sentence boundary",
			text:     "First sentence here. Second sentence is longer and gets cut off somewhere in the middle",
			maxWords: 8,
			want:     "First sentence here.",
		},
		{
			name:     "no boundary adds ellipsis",
			text:     "one two three four five six seven eight nine ten",
			maxWords: 5,
			want:     "one two three four five...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateSummary(tt.text, tt.maxWords); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuoteForStage(t *testing.T) {
	used := make(map[int]bool)

	q1, idx1 := quoteForStage(0, used)
	used[idx1] = true
	q2, idx2 := quoteForStage(0, used)
	if idx1 == idx2 {
		t.Error("second pick should skip the used quotation")
	}
	if q1.Text == q2.Text {
		t.Error("expected different quotations")
	}

	// When all are used, the modulo pick stands.
	for i := range quotations {
		used[i] = true
	}
	_, idx3 := quoteForStage(3, used)
	if idx3 != 3%len(quotations) {
		t.Errorf("got index %d, want %d", idx3, 3%len(quotations))
	}
}

func TestParseQuestions(t *testing.T) {
	response := `1. What does service mean to you personally?
2) How might you begin this week?
- Who could join you in this effort?
Not a question line
4. too short?`

	got := parseQuestions(response)
	if len(got) != 3 {
		t.Fatalf("got %d questions, want 3: %v", len(got), got)
	}
	if got[0] != "What does service mean to you personally?" {
		t.Errorf("unexpected first question %q", got[0])
	}
}

func TestRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := memory.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	mk := func(id string) *Coach {
		return New(id, &fakeLLM{}, store, nil, nil, llm.Options{}, logger)
	}

	reg := NewRegistry()

	c1 := reg.GetOrCreate("", mk)
	if c1.ID == "" {
		t.Fatal("expected generated id")
	}
	if got := reg.Get(c1.ID); got != c1 {
		t.Error("Get did not return the same coach")
	}

	c2 := reg.GetOrCreate(c1.ID, mk)
	if c2 != c1 {
		t.Error("GetOrCreate created a duplicate for an existing id")
	}

	c3 := reg.GetOrCreate("", mk)
	if c3.ID == c1.ID {
		t.Error("fresh conversations must get distinct ids")
	}

	reg.Remove(c1.ID)
	if reg.Get(c1.ID) != nil {
		t.Error("coach still present after Remove")
	}
}
