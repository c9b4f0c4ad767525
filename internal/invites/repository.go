package invites

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InviteRepo is the persistence boundary for invitations.
type InviteRepo interface {
	// Create persists a new invitation. At most one invitation exists per
	// (event, guest) pair; a duplicate returns ErrAlreadyInvited.
	Create(ctx context.Context, inv *Invitation) error
	Get(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	GetByEventAndGuest(ctx context.Context, eventID, guestID string) (*Invitation, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Invitation, error)
	Update(ctx context.Context, inv *Invitation) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

type pairKey struct{ eventID, guestID string }

// MemoryInviteRepo is an in-memory InviteRepo for tests and the memory store.
type MemoryInviteRepo struct {
	mu      sync.RWMutex
	byID    map[string]*Invitation
	byToken map[string]string
	byPair  map[pairKey]string
}

func NewMemoryInviteRepo() *MemoryInviteRepo {
	return &MemoryInviteRepo{
		byID:    make(map[string]*Invitation),
		byToken: make(map[string]string),
		byPair:  make(map[pairKey]string),
	}
}

func (r *MemoryInviteRepo) Create(_ context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{inv.EventID, inv.GuestID}
	if _, ok := r.byPair[key]; ok {
		return ErrAlreadyInvited
	}
	if _, ok := r.byToken[inv.Token]; ok {
		return ErrTokenExists
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	c := cloneInvitation(inv)
	r.byID[inv.ID] = c
	r.byToken[inv.Token] = inv.ID
	r.byPair[key] = inv.ID
	return nil
}

func (r *MemoryInviteRepo) Get(_ context.Context, id string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvitation(inv), nil
}

func (r *MemoryInviteRepo) GetByToken(_ context.Context, token string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if token == "" {
		return nil, ErrNotFound
	}
	id, ok := r.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvitation(r.byID[id]), nil
}

func (r *MemoryInviteRepo) GetByEventAndGuest(_ context.Context, eventID, guestID string) (*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey{eventID, guestID}]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvitation(r.byID[id]), nil
}

func (r *MemoryInviteRepo) ListByEvent(_ context.Context, eventID string) ([]*Invitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Invitation
	for _, inv := range r.byID {
		if inv.EventID == eventID {
			out = append(out, cloneInvitation(inv))
		}
	}
	return out, nil
}

func (r *MemoryInviteRepo) Update(_ context.Context, inv *Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[inv.ID]
	if !ok {
		return ErrNotFound
	}
	up := cloneInvitation(inv)
	up.EventID = cur.EventID
	up.GuestID = cur.GuestID
	up.Token = cur.Token
	up.CreatedAt = cur.CreatedAt
	up.UpdatedAt = time.Now().UTC()
	r.byID[inv.ID] = up
	return nil
}

func (r *MemoryInviteRepo) DeleteByEvent(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, inv := range r.byID {
		if inv.EventID != eventID {
			continue
		}
		delete(r.byToken, inv.Token)
		delete(r.byPair, pairKey{inv.EventID, inv.GuestID})
		delete(r.byID, id)
	}
	return nil
}

func cloneInvitation(inv *Invitation) *Invitation {
	c := *inv
	if inv.RespondedAt != nil {
		t := *inv.RespondedAt
		c.RespondedAt = &t
	}
	if inv.CheckedInAt != nil {
		t := *inv.CheckedInAt
		c.CheckedInAt = &t
	}
	return &c
}
