package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/nholloway/solace-agent/internal/memory"
)

func (s *Server) handleMemoriesList(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		s.errorResponse(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	var facts []memory.Fact
	if query := r.URL.Query().Get("query"); query != "" {
		facts = s.store.Query(conversationID, query, 20)
	} else {
		facts = s.store.List(conversationID)
	}
	if facts == nil {
		facts = []memory.Fact{}
	}
	s.writeJSON(w, map[string]any{"memories": facts})
}

type memoryAddRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

func (s *Server) handleMemoriesAdd(w http.ResponseWriter, r *http.Request) {
	var req memoryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" || strings.TrimSpace(req.Content) == "" {
		s.errorResponse(w, http.StatusBadRequest, "conversation_id and content are required")
		return
	}

	fact, err := s.store.Append(req.ConversationID, req.Content, memory.SourceExplicit)
	if err != nil {
		s.logger.Error("failed to store memory", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to store memory")
		return
	}
	if fact == nil {
		s.errorResponse(w, http.StatusConflict, "memory already stored")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, fact)
}

type memoryUpdateRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

func (s *Server) handleMemoriesUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req memoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" || strings.TrimSpace(req.Content) == "" {
		s.errorResponse(w, http.StatusBadRequest, "conversation_id and content are required")
		return
	}

	fact, err := s.store.Update(req.ConversationID, id, req.Content)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "memory not found")
			return
		}
		s.logger.Error("failed to update memory", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to update memory")
		return
	}
	s.writeJSON(w, fact)
}

func (s *Server) handleMemoriesDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		s.errorResponse(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	if err := s.store.Delete(conversationID, id); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "memory not found")
			return
		}
		s.logger.Error("failed to delete memory", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}
	s.writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusNotFound, "session archive is not enabled")
		return
	}
	query := r.URL.Query().Get("query")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.archive.List(query, limit)
	if err != nil {
		s.logger.Error("failed to list archived sessions", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []memory.ArchivedSession{}
	}
	s.writeJSON(w, map[string]any{"sessions": sessions})
}
