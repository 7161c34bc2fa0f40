package server

import (
	"context"
	"net/http"
)

type chatRequest struct {
	ConversationID int64  `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if !s.chatLimiter.allow(owner) {
		respondError(w, http.StatusTooManyRequests, "chat rate limit exceeded, try again in a minute")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatCallTimeout)
	defer cancel()

	result, err := s.agent.Chat(ctx, owner, req.ConversationID, req.Message, nil)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversationId": result.ConversationID,
		"response":       result.Response,
		"toolCalls":      result.ToolCalls,
		"source":         result.Source,
		"model":          result.Model,
		"durationMs":     result.Duration.Milliseconds(),
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.convs.ListByOwner(ownerID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": convs, "count": len(convs)})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	msgs, err := s.convs.Messages(ownerID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs, "count": len(msgs)})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if err := s.convs.Delete(ownerID(r), id); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
