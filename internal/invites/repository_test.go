package invites

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()

	inv, err := New("ev1", "g1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(inv.Token) != 40 {
		t.Errorf("token length = %d, want 40 hex chars", len(inv.Token))
	}
	if inv.Status != StatusSent {
		t.Errorf("status = %q, want sent", inv.Status)
	}
	if err := repo.Create(ctx, inv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inv.ID == "" {
		t.Fatal("Create did not assign an ID")
	}

	byID, err := repo.Get(ctx, inv.ID)
	if err != nil || byID.GuestID != "g1" {
		t.Fatalf("Get = %+v, %v", byID, err)
	}
	byTok, err := repo.GetByToken(ctx, inv.Token)
	if err != nil || byTok.ID != inv.ID {
		t.Fatalf("GetByToken = %+v, %v", byTok, err)
	}
	byPair, err := repo.GetByEventAndGuest(ctx, "ev1", "g1")
	if err != nil || byPair.ID != inv.ID {
		t.Fatalf("GetByEventAndGuest = %+v, %v", byPair, err)
	}
}

func TestCreateDuplicatePair(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()

	first, _ := New("ev1", "g1")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup, _ := New("ev1", "g1")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrAlreadyInvited) {
		t.Errorf("duplicate pair = %v, want ErrAlreadyInvited", err)
	}
	// same guest on another event is fine
	other, _ := New("ev2", "g1")
	if err := repo.Create(ctx, other); err != nil {
		t.Errorf("other event = %v", err)
	}
}

func TestGetByTokenEmpty(t *testing.T) {
	repo := NewMemoryInviteRepo()
	if _, err := repo.GetByToken(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty token = %v, want ErrNotFound", err)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()
	inv, _ := New("ev1", "g1")
	repo.Create(ctx, inv)

	up, _ := repo.Get(ctx, inv.ID)
	up.Status = StatusViewed
	up.Token = "forged"
	up.GuestID = "someone-else"
	if err := repo.Update(ctx, up); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.Get(ctx, inv.ID)
	if got.Status != StatusViewed {
		t.Errorf("status = %q", got.Status)
	}
	if got.Token != inv.Token || got.GuestID != "g1" {
		t.Errorf("identity fields changed: %+v", got)
	}
	// original token still resolves
	if _, err := repo.GetByToken(ctx, inv.Token); err != nil {
		t.Errorf("GetByToken after update = %v", err)
	}
}

func TestListByEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()
	for _, g := range []string{"g1", "g2"} {
		inv, _ := New("ev1", g)
		repo.Create(ctx, inv)
	}
	other, _ := New("ev2", "g1")
	repo.Create(ctx, other)

	got, err := repo.ListByEvent(ctx, "ev1")
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestDeleteByEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()
	inv, _ := New("ev1", "g1")
	repo.Create(ctx, inv)
	keep, _ := New("ev2", "g1")
	repo.Create(ctx, keep)

	if err := repo.DeleteByEvent(ctx, "ev1"); err != nil {
		t.Fatalf("DeleteByEvent: %v", err)
	}
	if _, err := repo.Get(ctx, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get deleted = %v", err)
	}
	if _, err := repo.GetByToken(ctx, inv.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("token still resolves after delete")
	}
	// pair index freed: a fresh invite for the same pair succeeds
	again, _ := New("ev1", "g1")
	if err := repo.Create(ctx, again); err != nil {
		t.Errorf("re-invite after delete = %v", err)
	}
	if _, err := repo.Get(ctx, keep.ID); err != nil {
		t.Errorf("other event invitation lost: %v", err)
	}
}

func TestReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInviteRepo()
	inv, _ := New("ev1", "g1")
	repo.Create(ctx, inv)

	got, _ := repo.Get(ctx, inv.ID)
	got.Status = StatusDeclined
	again, _ := repo.Get(ctx, inv.ID)
	if again.Status != StatusSent {
		t.Errorf("stored invitation mutated: %q", again.Status)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusSent, StatusViewed, StatusConfirmed, StatusDeclined, StatusCheckedIn} {
		if !s.Valid() {
			t.Errorf("%q reported invalid", s)
		}
	}
	if Status("pending").Valid() {
		t.Error("unknown status reported valid")
	}
}
