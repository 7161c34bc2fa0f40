package server

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/soyeahso/taskdeck/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

const minPasswordLen = 8

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}
	if len(req.Password) < minPasswordLen {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error().Err(err).Msg("hashing password")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.users.Create(req.Email, string(hash))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("issuing token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.Info().Str("user", user.ID).Msg("user registered")
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDomainError(w, err)
		return
	}

	user, err := s.users.GetByEmail(req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("issuing token")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(ownerID(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
