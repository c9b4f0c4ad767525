package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventRepo is the persistence boundary for events and their rosters.
type EventRepo interface {
	Create(ctx context.Context, ev *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// ListForUser returns events the user created or attends.
	ListForUser(ctx context.Context, userID string) ([]*Event, error)
	Update(ctx context.Context, ev *Event) error
	Delete(ctx context.Context, id string) error

	// AddAttendee enrolls the guest with the given status if absent.
	// Enrolling an existing guest is a no-op.
	AddAttendee(ctx context.Context, eventID, guestID string, status RSVPStatus) error
	UpdateAttendeeRSVP(ctx context.Context, eventID, guestID string, status RSVPStatus) error
	// CheckInAttendee flips checked_in from false to true exactly once.
	// A second call returns ErrAlreadyCheckedIn.
	CheckInAttendee(ctx context.Context, eventID, guestID string, at time.Time) error
}

// MemoryEventRepo is an in-memory EventRepo for tests and the memory store.
type MemoryEventRepo struct {
	mu     sync.RWMutex
	events map[string]*Event
}

func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{events: make(map[string]*Event)}
}

func (r *MemoryEventRepo) Create(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	r.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (r *MemoryEventRepo) Get(_ context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return cloneEvent(ev), nil
}

func (r *MemoryEventRepo) ListForUser(_ context.Context, userID string) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Event
	for _, ev := range r.events {
		if ev.CreatorID == userID || ev.HasAttendee(userID) {
			out = append(out, cloneEvent(ev))
		}
	}
	return out, nil
}

func (r *MemoryEventRepo) Update(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.events[ev.ID]
	if !ok {
		return ErrEventNotFound
	}
	up := cloneEvent(ev)
	up.CreatedAt = cur.CreatedAt
	up.QRCodeData = cur.QRCodeData // immutable after creation
	up.UpdatedAt = time.Now().UTC()
	r.events[ev.ID] = up
	return nil
}

func (r *MemoryEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *MemoryEventRepo) AddAttendee(_ context.Context, eventID, guestID string, status RSVPStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if ev.HasAttendee(guestID) {
		return nil
	}
	ev.Attendees = append(ev.Attendees, Attendee{GuestID: guestID, RSVPStatus: status})
	ev.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryEventRepo) UpdateAttendeeRSVP(_ context.Context, eventID, guestID string, status RSVPStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	att := ev.Attendee(guestID)
	if att == nil {
		return ErrAttendeeNotFound
	}
	att.RSVPStatus = status
	ev.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryEventRepo) CheckInAttendee(_ context.Context, eventID, guestID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	att := ev.Attendee(guestID)
	if att == nil {
		return ErrAttendeeNotFound
	}
	if att.CheckedIn {
		return ErrAlreadyCheckedIn
	}
	at = at.UTC()
	att.CheckedIn = true
	att.CheckedInAt = &at
	ev.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneEvent(ev *Event) *Event {
	c := *ev
	c.Attendees = make([]Attendee, len(ev.Attendees))
	copy(c.Attendees, ev.Attendees)
	for i := range c.Attendees {
		if t := ev.Attendees[i].CheckedInAt; t != nil {
			tc := *t
			c.Attendees[i].CheckedInAt = &tc
		}
	}
	return &c
}
