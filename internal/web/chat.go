package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nholloway/solace-agent/internal/coach"
	"github.com/nholloway/solace-agent/internal/render"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Reply           string                 `json:"reply"`
	ReplyHTML       string                 `json:"reply_html"`
	SpeechText      string                 `json:"speech_text,omitempty"`
	ConversationID  string                 `json:"conversation_id"`
	Insights        []string               `json:"insights,omitempty"`
	IntegrationData *coach.IntegrationData `json:"integration_data,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	c := s.registry.GetOrCreate(req.ConversationID, s.newCoach)
	reply := c.Respond(r.Context(), req.Message)

	resp := chatResponse{
		Reply:          reply.Text,
		ReplyHTML:      render.Markdown(reply.Text),
		ConversationID: c.ID,
		Insights:       reply.Insights,
	}
	if reply.Integration != nil && reply.Integration.Used {
		resp.IntegrationData = reply.Integration
	}
	if s.cfg.Speech.Enabled {
		resp.SpeechText = render.PlainText(resp.ReplyHTML)
	}
	s.writeJSON(w, resp)
}

type resetRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.ConversationID != "" {
		s.registry.Remove(req.ConversationID)
	}

	c := s.newCoach("")
	s.registry.GetOrCreate(c.ID, func(string) *coach.Coach { return c })
	greeting := c.Greeting(r.Context())

	resp := chatResponse{
		Reply:          greeting,
		ReplyHTML:      render.Markdown(greeting),
		ConversationID: c.ID,
	}
	if s.cfg.Speech.Enabled {
		resp.SpeechText = render.PlainText(resp.ReplyHTML)
	}
	s.writeJSON(w, resp)
}

type endSessionRequest struct {
	ConversationID string `json:"conversation_id"`
	Remember       *bool  `json:"remember"` // default true
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c := s.registry.Get(req.ConversationID)
	if c == nil {
		s.errorResponse(w, http.StatusNotFound, "conversation not found")
		return
	}

	if req.Remember != nil && !*req.Remember {
		s.registry.Remove(c.ID)
		s.writeJSON(w, map[string]any{
			"status":          "ended",
			"conversation_id": c.ID,
		})
		return
	}

	summary := c.End(r.Context())
	s.registry.Remove(c.ID)

	s.writeJSON(w, map[string]any{
		"status":          "ended",
		"summary":         summary,
		"turns":           c.TurnCount(),
		"conversation_id": c.ID,
	})
}
