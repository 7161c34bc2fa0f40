package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/taskdeck/internal/domain"
)

// wsInbound is one chat request over the WebSocket.
type wsInbound struct {
	ConversationID int64  `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

// wsFrame is one event sent to the client. Type is "tool_start",
// "tool_result", "tool_error", "done", or "error".
type wsFrame struct {
	Type           string              `json:"type"`
	Tool           string              `json:"tool,omitempty"`
	ConversationID int64               `json:"conversationId,omitempty"`
	Response       string              `json:"response,omitempty"`
	ToolCalls      []domain.ToolRecord `json:"toolCalls,omitempty"`
	Source         string              `json:"source,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// handleChatWS runs chat turns over a WebSocket, streaming tool events as
// they happen. Auth matches the REST endpoints (bearer header or ?token=).
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(64 * 1024)
	s.log.Debug().Str("owner", owner).Str("remote", r.RemoteAddr).Msg("chat websocket connected")

	// Writes come from both the turn goroutine (tool events) and this loop.
	var writeMu sync.Mutex
	send := func(frame wsFrame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			s.log.Warn().Err(err).Msg("websocket write failed")
		}
	}

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("owner", owner).Msg("chat websocket closed")
			} else {
				s.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		if !s.chatLimiter.allow(owner) {
			send(wsFrame{Type: "error", Error: "chat rate limit exceeded, try again in a minute"})
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), chatCallTimeout)
		result, err := s.agent.Chat(ctx, owner, in.ConversationID, in.Message, func(event, tool string) {
			send(wsFrame{Type: event, Tool: tool})
		})
		cancel()

		if err != nil {
			send(wsFrame{Type: "error", Error: err.Error()})
			continue
		}

		send(wsFrame{
			Type:           "done",
			ConversationID: result.ConversationID,
			Response:       result.Response,
			ToolCalls:      result.ToolCalls,
			Source:         result.Source,
		})
	}
}
