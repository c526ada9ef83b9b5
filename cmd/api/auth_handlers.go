package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/rabbitfunding/pkg/auth"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/store"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authErrorStatus maps access-gate errors to a status code and message.
func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest, "All fields are required"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 6 characters"
	case errors.Is(err, auth.ErrRequestPending):
		return http.StatusBadRequest, "A request with this email is already pending approval"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrPendingApproval):
		return http.StatusForbidden, "Your account is pending approval. Please wait for admin approval."
	case errors.Is(err, auth.ErrAccessRejected):
		return http.StatusForbidden, "Your account request was rejected. Please contact admin."
	case errors.Is(err, auth.ErrProtectedUser):
		return http.StatusForbidden, "Admin accounts cannot be modified"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

func (s *Server) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := authErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Access gate operation failed", "path", r.URL.Path, "error", err)
	}
	respondWithError(w, status, msg)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	token, user, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.respondAuthError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("User logged in", "userID", user.ID)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (s *Server) requestAccessHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := s.auth.RequestAccess(req.Name, req.Email, req.Password); err != nil {
		s.respondAuthError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Access request submitted. Please wait for admin approval.",
	})
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    userFromContext(r.Context()),
	})
}

func (s *Server) listPendingHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListPending()
	if err != nil {
		s.respondAuthError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers()
	if err != nil {
		s.respondAuthError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

func (s *Server) addUserHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.auth.AddUser(req.Name, req.Email, req.Password)
	if err != nil {
		s.respondAuthError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User added",
		"user":    user,
	})
}

func userIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) userActionHandler(w http.ResponseWriter, r *http.Request, action func(uuid.UUID) error, message string) {
	id, ok := userIDFromPath(w, r)
	if !ok {
		return
	}
	if err := action(id); err != nil {
		s.respondAuthError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
}

func (s *Server) approveUserHandler(w http.ResponseWriter, r *http.Request) {
	s.userActionHandler(w, r, s.auth.Approve, "User approved")
}

func (s *Server) rejectUserHandler(w http.ResponseWriter, r *http.Request) {
	s.userActionHandler(w, r, s.auth.Reject, "User rejected")
}

func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	s.userActionHandler(w, r, s.auth.Delete, "User deleted")
}
