package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatherkit/gatherd/internal/api"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
)

type inviteRequest struct {
	Emails []string `json:"emails"`
}

// InviteGuests invites a batch of emails to the event. The response reports
// per-recipient outcomes; a bad address never aborts the batch.
func (h *Handler) InviteGuests(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Emails) == 0 {
		api.WriteBadRequest(w, api.ReasonMissingField, "emails is required")
		return
	}
	report, err := h.lifecycle.Invite(r.Context(), userID, chi.URLParam(r, "eventID"), req.Emails)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteResult(w, http.StatusOK, "invitations processed", report)
}

type invitationWithGuest struct {
	*invites.Invitation
	Guest *identity.Summary `json:"guest,omitempty"`
}

// ListInvitations returns the event's invitations with guest summaries.
// Organizer only.
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	list, err := h.lifecycle.ListInvitations(r.Context(), userID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]invitationWithGuest, 0, len(list))
	for _, inv := range list {
		item := invitationWithGuest{Invitation: inv}
		if u, err := h.users.Get(r.Context(), inv.GuestID); err == nil {
			sum := u.Summary()
			item.Guest = &sum
		}
		out = append(out, item)
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// ViewInvitation resolves an invitation link. Public: the token itself is
// the capability.
func (h *Handler) ViewInvitation(w http.ResponseWriter, r *http.Request) {
	view, err := h.lifecycle.ViewInvitation(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, view)
}

type rsvpRequest struct {
	Status invites.Status `json:"status"`
}

// RSVP records the caller's answer on their invitation.
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	var req rsvpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv, err := h.lifecycle.RSVP(r.Context(), userID, chi.URLParam(r, "invitationID"), req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, inv)
}
