// Package invites holds guest-facing invitation records. Each invitation
// tracks the full lifecycle of one guest for one event; the event's
// attendee roster mirrors the organizer-facing view of the same state.
package invites

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("invitation not found")
	ErrAlreadyInvited = errors.New("guest already invited to event")
	ErrTokenExists    = errors.New("invitation token already exists")
)

// Status is an invitation's lifecycle state.
type Status string

const (
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusCheckedIn Status = "checked-in"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusViewed, StatusConfirmed, StatusDeclined, StatusCheckedIn:
		return true
	}
	return false
}

// Invitation is one guest's record for one event. At most one exists per
// (event, guest) pair.
type Invitation struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	GuestID string `json:"guest_id"`

	// Token is the invitation link token, unique across all invitations.
	Token  string `json:"token"`
	Status Status `json:"status"`

	// CheckInToken is the short-lived check-in secret bound into the
	// guest's QR credential. Empty when no credential is outstanding;
	// cleared again on redemption.
	CheckInToken string `json:"-"`

	// RespondedAt records the guest's last RSVP or check-in.
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// New builds an unpersisted invitation in the sent state with a fresh token.
func New(eventID, guestID string) (*Invitation, error) {
	tok, err := NewToken()
	if err != nil {
		return nil, err
	}
	return &Invitation{
		EventID: eventID,
		GuestID: guestID,
		Token:   tok,
		Status:  StatusSent,
	}, nil
}

// NewToken returns a 40-char hex invitation token.
func NewToken() (string, error) {
	return randomHex(20)
}

// NewCheckInToken returns a 32-char hex check-in secret.
func NewCheckInToken() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
