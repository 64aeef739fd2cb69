package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/middleware"
	"github.com/pkordes/planejatrip/internal/service"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string              `json:"name"`
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

// LoginRequest is the body of POST /auth/login. Email is a plain string so
// a malformed address fails like any other wrong credential.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileRequest is the body of PUT /me.
type ProfileRequest struct {
	Name            string `json:"name"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// register handles POST /auth/register. The new account is signed in.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if !decode(w, r, &body) {
		return
	}
	user, err := s.auth.Register(r.Context(), body.Name, string(body.Email), body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.openSession(w, r, user, http.StatusCreated)
}

// login handles POST /auth/login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !decode(w, r, &body) {
		return
	}
	user, err := s.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.openSession(w, r, user, http.StatusOK)
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request, user domain.User, status int) {
	signed, err := s.auth.OpenSession(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, signed)
}

// logout handles POST /auth/logout. The bearer token stops working.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	_, session, _ := middleware.ActorFrom(r.Context())
	if err := s.auth.Logout(r.Context(), session.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getMe handles GET /me: the user's trips and actionable invites.
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Load(r.Context(), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectionToResponse(p))
}

// updateMe handles PUT /me.
func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var body ProfileRequest
	if !decode(w, r, &body) {
		return
	}
	user, err := s.auth.UpdateProfile(r.Context(), actor(r), service.ProfileUpdate{
		Name:            body.Name,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
		ConfirmPassword: body.ConfirmPassword,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
