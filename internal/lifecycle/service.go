package lifecycle

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gatherkit/gatherd/internal/events"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
	"github.com/gatherkit/gatherd/internal/logutil"
	"github.com/gatherkit/gatherd/internal/notify"
)

var (
	ErrNotOrganizer       = errors.New("caller is not the event organizer")
	ErrNotInvited         = errors.New("no invitation for this guest")
	ErrInvalidRSVP        = errors.New("rsvp must be confirmed or declined")
	ErrCredentialInvalid  = errors.New("check-in credential invalid")
	ErrEventCodeMismatch  = errors.New("event code does not match")
	ErrAlreadyCheckedIn   = events.ErrAlreadyCheckedIn
	ErrGuestNotAttending  = events.ErrAttendeeNotFound
)

// Service drives the invitation and check-in lifecycle across the user,
// event and invitation stores.
type Service struct {
	users    identity.UserRepo
	events   events.EventRepo
	invites  invites.InviteRepo
	notifier notify.Notifier
	log      *slog.Logger
	origin   string
	now      func() time.Time
}

func NewService(users identity.UserRepo, evrepo events.EventRepo, invrepo invites.InviteRepo, notifier notify.Notifier, origin string, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		events:   evrepo,
		invites:  invrepo,
		notifier: notifier,
		log:      logutil.NoopIfNil(log),
		origin:   origin,
		now:      time.Now,
	}
}

// InviteOutcome reports what happened for one requested recipient.
type InviteOutcome struct {
	Email        string `json:"email"`
	InvitationID string `json:"invitation_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// InviteReport aggregates a batch invite request.
type InviteReport struct {
	Sent    []InviteOutcome `json:"sent"`
	Failed  []InviteOutcome `json:"failed"`
	Skipped []InviteOutcome `json:"skipped"`
}

// Invite invites each email to the event. Only the organizer may invite.
// The batch never aborts on a per-recipient problem: unknown addresses are
// reported as failed, already-invited guests as skipped, and a delivery
// failure after the invitation is durably stored is reported as failed
// while the invitation stands.
func (s *Service) Invite(ctx context.Context, organizerID, eventID string, emails []string) (*InviteReport, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != organizerID {
		return nil, ErrNotOrganizer
	}

	report := &InviteReport{}
	for _, raw := range emails {
		email := identity.NormalizeEmail(raw)
		if !identity.ValidEmail(email) {
			report.Failed = append(report.Failed, InviteOutcome{Email: raw, Reason: "invalid email"})
			continue
		}
		guest, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, identity.ErrUserNotFound) {
			report.Failed = append(report.Failed, InviteOutcome{Email: email, Reason: "user not found"})
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := s.invites.GetByEventAndGuest(ctx, eventID, guest.ID); err == nil {
			report.Skipped = append(report.Skipped, InviteOutcome{Email: email, Reason: "already invited"})
			continue
		} else if !errors.Is(err, invites.ErrNotFound) {
			return nil, err
		}

		inv, err := invites.New(eventID, guest.ID)
		if err != nil {
			return nil, err
		}
		if err := s.invites.Create(ctx, inv); err != nil {
			if errors.Is(err, invites.ErrAlreadyInvited) {
				report.Skipped = append(report.Skipped, InviteOutcome{Email: email, Reason: "already invited"})
				continue
			}
			return nil, err
		}
		if err := s.events.AddAttendee(ctx, eventID, guest.ID, events.RSVPPending); err != nil {
			return nil, err
		}

		msg := notify.Message{
			Kind:      notify.KindInvite,
			To:        guest.Email,
			EventName: ev.Title,
			Link:      fmt.Sprintf("%s/invitations/%s", s.origin, inv.Token),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.log.Warn("invite notification failed", "event_id", eventID, "email", email, "error", err)
			report.Failed = append(report.Failed, InviteOutcome{Email: email, InvitationID: inv.ID, Reason: "notification failed"})
			continue
		}
		report.Sent = append(report.Sent, InviteOutcome{Email: email, InvitationID: inv.ID})
	}
	return report, nil
}

// ListInvitations returns all invitations for the event. Organizer only.
func (s *Service) ListInvitations(ctx context.Context, organizerID, eventID string) ([]*invites.Invitation, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != organizerID {
		return nil, ErrNotOrganizer
	}
	return s.invites.ListByEvent(ctx, eventID)
}

// InvitationView is what an invitation link resolves to.
type InvitationView struct {
	Invitation *invites.Invitation `json:"invitation"`
	Event      *events.Event       `json:"event"`
	Guest      *identity.Summary   `json:"guest,omitempty"`
}

// ViewInvitation resolves an invitation token and marks a fresh invitation
// as viewed. Only the sent state transitions; later states are untouched,
// so reloading the page never regresses an answer.
func (s *Service) ViewInvitation(ctx context.Context, token string) (*InvitationView, error) {
	inv, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status == invites.StatusSent {
		inv.Status = invites.StatusViewed
		if err := s.invites.Update(ctx, inv); err != nil {
			return nil, err
		}
	}
	ev, err := s.events.Get(ctx, inv.EventID)
	if err != nil {
		return nil, err
	}
	view := &InvitationView{Invitation: inv, Event: ev.Redacted()}
	if u, err := s.users.Get(ctx, inv.GuestID); err == nil {
		sum := u.Summary()
		view.Guest = &sum
	}
	return view, nil
}

// RSVP records the guest's answer on their invitation and mirrors it onto
// the event roster. Only the invited guest may respond. The invitation is
// authoritative: it is written first, and a missing roster entry does not
// undo the answer.
func (s *Service) RSVP(ctx context.Context, userID, invitationID string, status invites.Status) (*invites.Invitation, error) {
	if status != invites.StatusConfirmed && status != invites.StatusDeclined {
		return nil, ErrInvalidRSVP
	}
	inv, err := s.invites.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.GuestID != userID {
		return nil, ErrNotInvited
	}
	if inv.Status == invites.StatusCheckedIn {
		return nil, ErrAlreadyCheckedIn
	}
	at := s.now().UTC()
	inv.Status = status
	inv.RespondedAt = &at
	if err := s.invites.Update(ctx, inv); err != nil {
		return nil, err
	}

	mirror := events.RSVPConfirmed
	if status == invites.StatusDeclined {
		mirror = events.RSVPDeclined
	}
	if err := s.events.UpdateAttendeeRSVP(ctx, inv.EventID, userID, mirror); err != nil {
		s.log.Warn("rsvp roster mirror failed", "event_id", inv.EventID, "guest_id", userID, "error", err)
	}
	return inv, nil
}

// IssuedCredential is a freshly minted check-in credential.
type IssuedCredential struct {
	Credential Credential
	Encoded    string
	ExpiresAt  time.Time
}

// IssueCredential mints a short-lived check-in credential for the guest's
// own attendance. Each issue replaces any previous outstanding credential
// for the same invitation.
func (s *Service) IssueCredential(ctx context.Context, userID, eventID string) (*IssuedCredential, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	inv, err := s.invites.GetByEventAndGuest(ctx, eventID, userID)
	if errors.Is(err, invites.ErrNotFound) {
		return nil, ErrNotInvited
	}
	if err != nil {
		return nil, err
	}

	token, err := invites.NewCheckInToken()
	if err != nil {
		return nil, err
	}
	inv.CheckInToken = token
	if err := s.invites.Update(ctx, inv); err != nil {
		return nil, err
	}

	issued := s.now()
	cred := Credential{
		EventID:      eventID,
		GuestID:      userID,
		CheckInToken: token,
		IssuedAt:     issued.UnixMilli(),
	}
	encoded, err := cred.Encode()
	if err != nil {
		return nil, err
	}
	return &IssuedCredential{
		Credential: cred,
		Encoded:    encoded,
		ExpiresAt:  issued.Add(CredentialTTL),
	}, nil
}

// CheckInResult reports a completed check-in.
type CheckInResult struct {
	EventID     string            `json:"event_id"`
	GuestID     string            `json:"guest_id"`
	Guest       *identity.Summary `json:"guest,omitempty"`
	CheckedInAt time.Time         `json:"checked_in_at"`
}

// VerifyAndCheckIn redeems a guest's credential scanned by the organizer.
// The credential is one-shot: its token is cleared on redemption, and the
// roster entry is the atomic gate against double check-in.
func (s *Service) VerifyAndCheckIn(ctx context.Context, scannerID, encoded string) (*CheckInResult, error) {
	cred, err := DecodeCredential(encoded)
	if err != nil {
		return nil, err
	}
	if cred.ExpiredAt(s.now()) {
		return nil, ErrCredentialExpired
	}

	ev, err := s.events.Get(ctx, cred.EventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != scannerID {
		return nil, ErrNotOrganizer
	}

	inv, err := s.invites.GetByEventAndGuest(ctx, cred.EventID, cred.GuestID)
	if errors.Is(err, invites.ErrNotFound) {
		return nil, ErrCredentialInvalid
	}
	if err != nil {
		return nil, err
	}
	if inv.CheckInToken == "" ||
		subtle.ConstantTimeCompare([]byte(inv.CheckInToken), []byte(cred.CheckInToken)) != 1 {
		return nil, ErrCredentialInvalid
	}

	at := s.now().UTC()
	if err := s.events.CheckInAttendee(ctx, cred.EventID, cred.GuestID, at); err != nil {
		return nil, err
	}

	inv.Status = invites.StatusCheckedIn
	inv.RespondedAt = &at
	inv.CheckedInAt = &at
	inv.CheckInToken = ""
	if err := s.invites.Update(ctx, inv); err != nil {
		return nil, err
	}
	return s.checkInResult(ctx, cred.EventID, cred.GuestID, at), nil
}

// EventCodeCheckIn is the organizer's manual fallback: the event's own code
// plus an explicit guest selects who to check in.
func (s *Service) EventCodeCheckIn(ctx context.Context, scannerID, eventID, code, guestID string) (*CheckInResult, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != scannerID {
		return nil, ErrNotOrganizer
	}
	if code == "" ||
		subtle.ConstantTimeCompare([]byte(ev.QRCodeData), []byte(code)) != 1 {
		return nil, ErrEventCodeMismatch
	}

	at := s.now().UTC()
	if err := s.events.CheckInAttendee(ctx, eventID, guestID, at); err != nil {
		return nil, err
	}

	// Mirror onto the invitation when one exists; the organizer can
	// check in guests enrolled without one.
	if inv, err := s.invites.GetByEventAndGuest(ctx, eventID, guestID); err == nil {
		inv.Status = invites.StatusCheckedIn
		inv.RespondedAt = &at
		inv.CheckedInAt = &at
		inv.CheckInToken = ""
		if err := s.invites.Update(ctx, inv); err != nil {
			s.log.Warn("check-in invitation mirror failed", "event_id", eventID, "guest_id", guestID, "error", err)
		}
	}
	return s.checkInResult(ctx, eventID, guestID, at), nil
}

func (s *Service) checkInResult(ctx context.Context, eventID, guestID string, at time.Time) *CheckInResult {
	res := &CheckInResult{EventID: eventID, GuestID: guestID, CheckedInAt: at}
	if u, err := s.users.Get(ctx, guestID); err == nil {
		sum := u.Summary()
		res.Guest = &sum
	}
	return res
}

// Stats summarizes attendance for the organizer.
type Stats struct {
	TotalAttendees     int     `json:"total_attendees"`
	CheckedInAttendees int     `json:"checked_in_attendees"`
	ConfirmedAttendees int     `json:"confirmed_attendees"`
	CheckInRate        float64 `json:"check_in_rate"`
}

// EventStats computes attendance counters. Organizer only. The rate is a
// percentage, 0 for an empty roster.
func (s *Service) EventStats(ctx context.Context, organizerID, eventID string) (*Stats, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != organizerID {
		return nil, ErrNotOrganizer
	}

	st := &Stats{TotalAttendees: len(ev.Attendees)}
	for _, att := range ev.Attendees {
		if att.CheckedIn {
			st.CheckedInAttendees++
		}
		if att.RSVPStatus == events.RSVPConfirmed {
			st.ConfirmedAttendees++
		}
	}
	if st.TotalAttendees > 0 {
		rate := float64(st.CheckedInAttendees) / float64(st.TotalAttendees) * 100
		st.CheckInRate = math.Round(rate*100) / 100
	}
	return st, nil
}
