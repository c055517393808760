package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/nholloway/solace-agent/internal/render"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The UI is served from the same origin; local tools often
	// connect without an Origin header at all.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS runs a chat conversation over a websocket. Each inbound
// frame is a chatRequest; each reply frame is a chatResponse. The
// first frame of a connection with no conversation_id gets a
// greeting before its reply.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.logger.Debug("websocket read failed", "error", err)
			return
		}

		if strings.TrimSpace(req.Message) == "" {
			if err := conn.WriteJSON(map[string]string{"error": "message is required"}); err != nil {
				return
			}
			continue
		}

		fresh := req.ConversationID == ""
		c := s.registry.GetOrCreate(req.ConversationID, s.newCoach)
		if fresh {
			greeting := c.Greeting(r.Context())
			greet := chatResponse{
				Reply:          greeting,
				ReplyHTML:      render.Markdown(greeting),
				ConversationID: c.ID,
			}
			if s.cfg.Speech.Enabled {
				greet.SpeechText = render.PlainText(greet.ReplyHTML)
			}
			if err := conn.WriteJSON(greet); err != nil {
				return
			}
		}

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
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}
