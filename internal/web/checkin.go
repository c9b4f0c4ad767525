package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatherkit/gatherd/internal/api"
	"github.com/gatherkit/gatherd/internal/qr"
)

type attendeeQRResponse struct {
	QRCode     string    `json:"qr_code"`
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expires_at"`
	EventTitle string    `json:"event_title"`
}

// AttendeeQR issues the caller's check-in credential for an event and
// returns it rendered as a QR code. Credentials are short-lived; the client
// refreshes by calling again.
func (h *Handler) AttendeeQR(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	eventID := chi.URLParam(r, "eventID")

	issued, err := h.lifecycle.IssueCredential(r.Context(), userID, eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dataURL, err := qr.DataURL(issued.Encoded)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	ev, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, attendeeQRResponse{
		QRCode:     dataURL,
		Credential: issued.Encoded,
		ExpiresAt:  issued.ExpiresAt,
		EventTitle: ev.Title,
	})
}

type scanRequest struct {
	QRData string `json:"qr_data"`
}

// ScanCheckIn redeems a guest credential scanned by the organizer.
func (h *Handler) ScanCheckIn(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	var req scanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.QRData == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "qr_data is required")
		return
	}
	res, err := h.lifecycle.VerifyAndCheckIn(r.Context(), userID, req.QRData)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteResult(w, http.StatusOK, "checked in", res)
}

type eventCodeCheckInRequest struct {
	GuestID string `json:"guest_id"`
}

// EventCodeCheckIn is the organizer's manual fallback using the event's own
// code plus an explicit guest.
func (h *Handler) EventCodeCheckIn(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	var req eventCodeCheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GuestID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "guest_id is required")
		return
	}
	res, err := h.lifecycle.EventCodeCheckIn(r.Context(), userID,
		chi.URLParam(r, "eventID"), chi.URLParam(r, "qrCodeData"), req.GuestID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteResult(w, http.StatusOK, "checked in", res)
}

// CheckInStats returns attendance counters for the organizer's dashboard.
func (h *Handler) CheckInStats(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	st, err := h.lifecycle.EventStats(r.Context(), userID, chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, st)
}
