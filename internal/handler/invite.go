package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/planejatrip/internal/domain"
)

// InviteRequest is the body of POST /trips/{tripID}/invites. An empty
// permission means VIEW_ONLY.
type InviteRequest struct {
	Email      openapi_types.Email `json:"email"`
	Permission domain.Permission   `json:"permission"`
}

// createInvite handles POST /trips/{tripID}/invites.
func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body InviteRequest
	if !decode(w, r, &body) {
		return
	}
	inv, err := s.invites.Invite(r.Context(), actor(r), tripID, string(body.Email), body.Permission)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// acceptInvite handles POST /invites/{inviteID}/accept and returns the
// trip the caller just joined.
func (s *Server) acceptInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "inviteID")
	if !ok {
		return
	}
	trip, err := s.invites.Accept(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// declineInvite handles POST /invites/{inviteID}/decline.
func (s *Server) declineInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "inviteID")
	if !ok {
		return
	}
	inv, err := s.invites.Decline(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// resendInvite handles POST /invites/{inviteID}/resend.
func (s *Server) resendInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "inviteID")
	if !ok {
		return
	}
	inv, err := s.invites.Resend(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// dismissInvite handles DELETE /invites/{inviteID}.
func (s *Server) dismissInvite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "inviteID")
	if !ok {
		return
	}
	if err := s.invites.Dismiss(r.Context(), actor(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
