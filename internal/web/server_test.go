package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nholloway/solace-agent/internal/config"
	"github.com/nholloway/solace-agent/internal/llm"
	"github.com/nholloway/solace-agent/internal/memory"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := memory.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := config.Default()
	return NewServer(cfg, &fakeClient{response: "That sounds meaningful. What draws you to it?"}, store, nil, nil, logger)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/chat", map[string]string{"message": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /api/chat status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestChat_ReturnsReply(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/chat", map[string]string{"message": "I want to find more balance"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/chat status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp chatResponse
	decode(t, w, &resp)
	if resp.Reply == "" {
		t.Error("reply should not be empty")
	}
	if resp.ReplyHTML == "" {
		t.Error("reply_html should not be empty")
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id should be assigned")
	}

	// A second message with the same id reuses the conversation.
	w = postJSON(t, h, "/api/chat", map[string]string{
		"message":         "Tell me more",
		"conversation_id": resp.ConversationID,
	})
	var second chatResponse
	decode(t, w, &second)
	if second.ConversationID != resp.ConversationID {
		t.Errorf("conversation_id = %q, want %q", second.ConversationID, resp.ConversationID)
	}
}

func TestChat_SpeechTextWhenEnabled(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Speech.Enabled = true
	h := s.routes()

	w := postJSON(t, h, "/api/chat", map[string]string{"message": "hello"})
	var resp chatResponse
	decode(t, w, &resp)
	if resp.SpeechText == "" {
		t.Error("speech_text should be set when speech is enabled")
	}
	if strings.Contains(resp.SpeechText, "<") {
		t.Errorf("speech_text should be plain text, got %q", resp.SpeechText)
	}
}

func TestReset_StartsFreshConversation(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/reset", map[string]string{})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/reset status = %d, want %d", w.Code, http.StatusOK)
	}
	var first chatResponse
	decode(t, w, &first)
	if first.ConversationID == "" {
		t.Fatal("reset should assign a conversation id")
	}
	if first.Reply == "" {
		t.Error("reset should return a greeting")
	}

	w = postJSON(t, h, "/api/reset", map[string]string{"conversation_id": first.ConversationID})
	var second chatResponse
	decode(t, w, &second)
	if second.ConversationID == first.ConversationID {
		t.Error("reset should produce a distinct conversation id")
	}
}

func TestEndSession_ReturnsSummary(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/chat", map[string]string{"message": "I want to run a marathon"})
	var resp chatResponse
	decode(t, w, &resp)

	w = postJSON(t, h, "/api/end_session", map[string]string{"conversation_id": resp.ConversationID})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/end_session status = %d, want %d", w.Code, http.StatusOK)
	}
	var ended struct {
		Status  string `json:"status"`
		Summary string `json:"summary"`
	}
	decode(t, w, &ended)
	if ended.Status != "ended" {
		t.Errorf("status = %q, want ended", ended.Status)
	}
	if ended.Summary == "" {
		t.Error("summary should not be empty")
	}

	// The conversation is gone after ending.
	w = postJSON(t, h, "/api/end_session", map[string]string{"conversation_id": resp.ConversationID})
	if w.Code != http.StatusNotFound {
		t.Errorf("second end_session status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEndSession_RememberFalseSkipsSummary(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/chat", map[string]string{"message": "hello"})
	var resp chatResponse
	decode(t, w, &resp)

	w = postJSON(t, h, "/api/end_session", map[string]any{
		"conversation_id": resp.ConversationID,
		"remember":        false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/end_session status = %d, want %d", w.Code, http.StatusOK)
	}
	var ended struct {
		Status  string `json:"status"`
		Summary string `json:"summary"`
	}
	decode(t, w, &ended)
	if ended.Summary != "" {
		t.Errorf("summary = %q, want empty when remember is false", ended.Summary)
	}
}

func TestEndSession_UnknownConversation(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/end_session", map[string]string{"conversation_id": "nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("POST /api/end_session status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMemories_CRUD(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	w := postJSON(t, h, "/api/memories", map[string]string{
		"conversation_id": "conv-1",
		"content":         "User plays piano on weekends",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/memories status = %d, want %d", w.Code, http.StatusCreated)
	}
	var fact memory.Fact
	decode(t, w, &fact)
	if fact.ID == "" {
		t.Fatal("created memory should have an id")
	}

	req := httptest.NewRequest("GET", "/api/memories?conversation_id=conv-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/memories status = %d, want %d", rec.Code, http.StatusOK)
	}
	var listed struct {
		Memories []memory.Fact `json:"memories"`
	}
	decode(t, rec, &listed)
	if len(listed.Memories) != 1 {
		t.Fatalf("got %d memories, want 1", len(listed.Memories))
	}

	data, _ := json.Marshal(map[string]string{
		"conversation_id": "conv-1",
		"content":         "User plays piano and guitar",
	})
	req = httptest.NewRequest("PUT", "/api/memories/"+fact.ID, bytes.NewReader(data))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/memories/{id} status = %d, want %d", rec.Code, http.StatusOK)
	}
	var updated memory.Fact
	decode(t, rec, &updated)
	if updated.Content != "User plays piano and guitar" {
		t.Errorf("updated content = %q", updated.Content)
	}

	req = httptest.NewRequest("DELETE", "/api/memories/"+fact.ID+"?conversation_id=conv-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE /api/memories/{id} status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest("DELETE", "/api/memories/"+fact.ID+"?conversation_id=conv-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE of missing memory status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMemories_Query(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	for _, content := range []string{
		"User enjoys morning runs by the river",
		"User is learning Spanish",
	} {
		w := postJSON(t, h, "/api/memories", map[string]string{
			"conversation_id": "conv-q",
			"content":         content,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("seed memory status = %d", w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/memories?conversation_id=conv-q&query=spanish+learning", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var listed struct {
		Memories []memory.Fact `json:"memories"`
	}
	decode(t, w, &listed)
	if len(listed.Memories) == 0 {
		t.Fatal("query should match the Spanish memory")
	}
	if !strings.Contains(listed.Memories[0].Content, "Spanish") {
		t.Errorf("top result = %q, want the Spanish memory", listed.Memories[0].Content)
	}
}

func TestMemories_RequireConversationID(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	req := httptest.NewRequest("GET", "/api/memories", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /api/memories status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestIntegrationStatus(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	req := httptest.NewRequest("GET", "/api/integration_status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/integration_status status = %d, want %d", w.Code, http.StatusOK)
	}
	var status struct {
		GoogleEnabled bool `json:"google_enabled"`
		SpeechEnabled bool `json:"speech_enabled"`
	}
	decode(t, w, &status)
	if status.GoogleEnabled {
		t.Error("google_enabled should be false without a manager")
	}
}

func TestGoogleEndpoints_Disabled(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	for _, path := range []string{"/api/google/auth_url", "/api/google/auth_qr"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}

	req := httptest.NewRequest("GET", "/api/google/check_auth", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/google/check_auth status = %d, want %d", w.Code, http.StatusOK)
	}
	var check struct {
		Authorized bool `json:"authorized"`
	}
	decode(t, w, &check)
	if check.Authorized {
		t.Error("check_auth should report unauthorized without a manager")
	}
}

func TestArchive_QueryFiltersSessions(t *testing.T) {
	s := newTestServer(t)

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	archive, err := memory.NewArchive(db)
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	s.archive = archive

	for _, sess := range []memory.ArchivedSession{
		{ID: "s1", ConversationID: "c1", Summary: "Discussed meditation habits.", Turns: 4, CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "s2", ConversationID: "c2", Summary: "Explored career goals.", Turns: 6, CreatedAt: time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)},
	} {
		if err := archive.Save(sess); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	h := s.routes()

	req := httptest.NewRequest("GET", "/api/archive?query=career", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/archive status = %d, want %d", w.Code, http.StatusOK)
	}
	var listed struct {
		Sessions []memory.ArchivedSession `json:"sessions"`
	}
	decode(t, w, &listed)
	if len(listed.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(listed.Sessions))
	}
	if listed.Sessions[0].ID != "s2" {
		t.Errorf("session id = %q, want s2", listed.Sessions[0].ID)
	}
}

func TestArchive_Disabled(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	req := httptest.NewRequest("GET", "/api/archive", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /api/archive status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	var health struct {
		Status string `json:"status"`
	}
	decode(t, w, &health)
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
}

func TestIndexServed(t *testing.T) {
	s := newTestServer(t)
	h := s.routes()

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("index page should be HTML")
	}
}
