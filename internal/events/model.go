// Package events provides the event model and its attendee roster.
// An Event owns its attendee entries exclusively; attendee state is mutated
// only through the repository, never by callers holding an Event value.
package events

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrAlreadyCheckedIn = errors.New("attendee already checked in")
)

// RSVPStatus is an attendee's response state.
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "pending"
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPDeclined  RSVPStatus = "declined"
)

// Valid reports whether s is a known RSVP status.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPConfirmed, RSVPDeclined:
		return true
	}
	return false
}

// Attendee is an event-owned entry mirroring a guest's participation.
type Attendee struct {
	GuestID     string     `json:"guest_id"`
	RSVPStatus  RSVPStatus `json:"rsvp_status"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

// Event represents an event with its embedded attendee roster.
type Event struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`

	// QRCodeData is the event's check-in secret: generated once at
	// creation, globally unique, immutable afterwards. Redacted from
	// responses sent to non-creators.
	QRCodeData string `json:"qr_code_data,omitempty"`

	Attendees []Attendee `json:"attendees"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds an unpersisted event: the check-in secret is generated and the
// creator is enrolled as a confirmed attendee before first persistence.
func New(creatorID, title, description, location string, date time.Time) (*Event, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	return &Event{
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		Location:    location,
		Date:        date,
		QRCodeData:  secret,
		Attendees: []Attendee{
			{GuestID: creatorID, RSVPStatus: RSVPConfirmed},
		},
	}, nil
}

// Attendee returns the entry for the given guest, or nil.
func (e *Event) Attendee(guestID string) *Attendee {
	for i := range e.Attendees {
		if e.Attendees[i].GuestID == guestID {
			return &e.Attendees[i]
		}
	}
	return nil
}

// HasAttendee reports whether the guest is on the roster.
func (e *Event) HasAttendee(guestID string) bool {
	return e.Attendee(guestID) != nil
}

// Redacted returns a copy without the check-in secret, for responses to
// callers other than the creator.
func (e *Event) Redacted() *Event {
	c := *e
	c.QRCodeData = ""
	return &c
}

func newSecret() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
