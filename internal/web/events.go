package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatherkit/gatherd/internal/api"
	"github.com/gatherkit/gatherd/internal/events"
)

type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
}

// CreateEvent creates an event owned by the caller. The caller is enrolled
// as a confirmed attendee and the event's check-in secret is minted here,
// once.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	var req eventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || req.Date.IsZero() {
		api.WriteBadRequest(w, api.ReasonMissingField, "title and date are required")
		return
	}
	ev, err := events.New(userID, req.Title, req.Description, req.Location, req.Date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.events.Create(r.Context(), ev); err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, ev)
}

// ListEvents returns the events the caller created or attends.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	list, err := h.events.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]*events.Event, 0, len(list))
	for _, ev := range list {
		if ev.CreatorID != userID {
			ev = ev.Redacted()
		}
		out = append(out, ev)
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// GetEvent returns one event. Creator or attendee only; the check-in secret
// is visible to the creator alone.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	ev, err := h.events.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ev.CreatorID != userID && !ev.HasAttendee(userID) {
		api.WriteForbidden(w, api.ReasonUnauthorized, "not an attendee of this event")
		return
	}
	if ev.CreatorID != userID {
		ev = ev.Redacted()
	}
	api.WriteJSON(w, http.StatusOK, ev)
}

// UpdateEvent updates the editable fields. Creator only; the check-in
// secret is never regenerated.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	ev, err := h.events.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ev.CreatorID != userID {
		api.WriteForbidden(w, api.ReasonUnauthorized, "only the event organizer may do this")
		return
	}
	var req eventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title != "" {
		ev.Title = req.Title
	}
	if req.Description != "" {
		ev.Description = req.Description
	}
	if req.Location != "" {
		ev.Location = req.Location
	}
	if !req.Date.IsZero() {
		ev.Date = req.Date
	}
	if err := h.events.Update(r.Context(), ev); err != nil {
		h.writeServiceError(w, err)
		return
	}
	updated, err := h.events.Get(r.Context(), ev.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, updated)
}

// DeleteEvent removes the event and its invitations. Creator only.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	eventID := chi.URLParam(r, "eventID")
	ev, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ev.CreatorID != userID {
		api.WriteForbidden(w, api.ReasonUnauthorized, "only the event organizer may do this")
		return
	}
	if err := h.events.Delete(r.Context(), eventID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.invites.DeleteByEvent(r.Context(), eventID); err != nil {
		h.log.Warn("invitation cleanup failed", "event_id", eventID, "error", err)
	}
	api.WriteMessage(w, http.StatusOK, "event deleted")
}
