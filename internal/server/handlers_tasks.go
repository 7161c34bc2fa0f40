package server

import (
	"net/http"
	"strconv"

	"github.com/soyeahso/taskdeck/internal/domain"
	"github.com/soyeahso/taskdeck/internal/store"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := domain.StatusAll
	if q := r.URL.Query().Get("status"); q != "" {
		filter = domain.StatusFilter(q)
	}

	tasks, err := s.tasks.List(ownerID(r), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	task, err := s.tasks.Create(ownerID(r), title, description)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := s.tasks.Get(ownerID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := s.tasks.Update(ownerID(r), id, store.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	task, err := s.tasks.Toggle(ownerID(r), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if _, err := s.tasks.Delete(ownerID(r), id); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
