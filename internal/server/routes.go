package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/version"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/tasks", s.requireAuth(s.handleListTasks))
	mux.HandleFunc("POST /api/tasks", s.requireAuth(s.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/{id}", s.requireAuth(s.handleGetTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.requireAuth(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.requireAuth(s.handleDeleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.requireAuth(s.handleToggleTask))

	mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.requireAuth(s.handleConversationMessages))
	mux.HandleFunc("DELETE /api/conversations/{id}", s.requireAuth(s.handleDeleteConversation))

	mux.HandleFunc("GET /api/tools", s.requireAuth(s.handleListTools))
	mux.HandleFunc("GET /ws/chat", s.requireAuth(s.handleChatWS))

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.Definitions()
	items := make([]map[string]any, len(defs))
	for i, d := range defs {
		items[i] = map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"inputSchema": json.RawMessage(d.InputSchema),
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"tools": items, "count": len(items)})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain error types onto HTTP statuses. Not-owned
// resources surface as 404, same as nonexistent ones.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON parses a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
