package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the /api router. limit, when non-nil, wraps the
// unauthenticated endpoints (auth and the public invitation view) with rate
// limiting; authenticated traffic is already gated by a valid token.
func (h *Handler) Routes(limit func(http.Handler) http.Handler) chi.Router {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/forgotpassword", h.ForgotPassword)
		r.Put("/auth/resetpassword/{token}", h.ResetPassword)
		r.Get("/auth/verify-email/{token}", h.VerifyEmail)

		// public: the invitation token is the capability
		r.Get("/invitations/token/{token}", h.ViewInvitation)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", h.CreateEvent)
			r.Get("/", h.ListEvents)
			r.Get("/{eventID}", h.GetEvent)
			r.Put("/{eventID}", h.UpdateEvent)
			r.Delete("/{eventID}", h.DeleteEvent)
			r.Post("/{eventID}/invite", h.InviteGuests)
			r.Get("/{eventID}/invitations", h.ListInvitations)
		})

		r.Put("/invitations/{invitationID}/rsvp", h.RSVP)

		r.Route("/qr", func(r chi.Router) {
			r.Get("/events/{eventID}/attendee-qr", h.AttendeeQR)
			r.Post("/checkin", h.ScanCheckIn)
		})

		r.Route("/checkin/events/{eventID}", func(r chi.Router) {
			r.Post("/checkin/{qrCodeData}", h.EventCodeCheckIn)
			r.Get("/stats", h.CheckInStats)
		})
	})

	return r
}
