// Package web implements the HTTP handlers for the JSON API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatherkit/gatherd/internal/api"
	"github.com/gatherkit/gatherd/internal/events"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
	"github.com/gatherkit/gatherd/internal/lifecycle"
	"github.com/gatherkit/gatherd/internal/logutil"
	"github.com/gatherkit/gatherd/internal/notify"
	"github.com/gatherkit/gatherd/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler carries the dependencies shared by all API handlers.
type Handler struct {
	users     identity.UserRepo
	events    events.EventRepo
	invites   invites.InviteRepo
	lifecycle *lifecycle.Service
	hasher    *identity.PasswordHasher
	tokens    *identity.TokenIssuer
	notifier  notify.Notifier
	origin    string
	log       *slog.Logger
	now       func() time.Time
}

// Options configures a Handler.
type Options struct {
	Store     store.Driver
	Lifecycle *lifecycle.Service
	Hasher    *identity.PasswordHasher
	Tokens    *identity.TokenIssuer
	Notifier  notify.Notifier
	Origin    string
	Logger    *slog.Logger
}

func NewHandler(opts Options) *Handler {
	return &Handler{
		users:     opts.Store.Users(),
		events:    opts.Store.Events(),
		invites:   opts.Store.Invites(),
		lifecycle: opts.Lifecycle,
		hasher:    opts.Hasher,
		tokens:    opts.Tokens,
		notifier:  opts.Notifier,
		origin:    opts.Origin,
		log:       logutil.NoopIfNil(opts.Logger),
		now:       time.Now,
	}
}

// decodeBody parses a JSON request body into dst with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto the API error envelope.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		api.WriteNotFound(w, "event not found")
	case errors.Is(err, invites.ErrNotFound):
		api.WriteNotFound(w, "invitation not found")
	case errors.Is(err, identity.ErrUserNotFound):
		api.WriteNotFound(w, "user not found")
	case errors.Is(err, lifecycle.ErrNotOrganizer):
		api.WriteForbidden(w, api.ReasonUnauthorized, "only the event organizer may do this")
	case errors.Is(err, lifecycle.ErrNotInvited):
		api.WriteForbidden(w, api.ReasonUnauthorized, "no invitation for this guest")
	case errors.Is(err, lifecycle.ErrInvalidRSVP):
		api.WriteBadRequest(w, api.ReasonInvalidField, "rsvp must be confirmed or declined")
	case errors.Is(err, lifecycle.ErrCredentialExpired):
		api.WriteGone(w, "check-in credential expired, ask the guest to refresh their code")
	case errors.Is(err, lifecycle.ErrCredentialMalformed),
		errors.Is(err, lifecycle.ErrCredentialInvalid):
		api.WriteBadRequest(w, api.ReasonCredentialInvalid, "check-in credential not valid")
	case errors.Is(err, lifecycle.ErrEventCodeMismatch):
		api.WriteBadRequest(w, api.ReasonCredentialInvalid, "event code does not match")
	case errors.Is(err, events.ErrAlreadyCheckedIn):
		api.WriteConflict(w, "attendee already checked in")
	case errors.Is(err, events.ErrAttendeeNotFound):
		api.WriteNotFound(w, "guest is not an attendee of this event")
	case errors.Is(err, invites.ErrAlreadyInvited):
		api.WriteConflict(w, "guest already invited")
	default:
		h.log.Error("request failed", "error", err)
		api.WriteInternalError(w, "internal error")
	}
}
