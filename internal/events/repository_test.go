package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewEnrollsCreatorConfirmed(t *testing.T) {
	ev, err := New("creator", "Meetup", "desc", "Hall A", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(ev.QRCodeData) != 40 {
		t.Errorf("qr secret length = %d, want 40 hex chars", len(ev.QRCodeData))
	}
	att := ev.Attendee("creator")
	if att == nil {
		t.Fatal("creator not enrolled")
	}
	if att.RSVPStatus != RSVPConfirmed {
		t.Errorf("creator status = %q, want confirmed", att.RSVPStatus)
	}
}

func TestRepoCreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ev.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	got, err := repo.Get(ctx, ev.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Meetup" || got.CreatorID != "u1" {
		t.Errorf("got %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Get missing = %v, want ErrEventNotFound", err)
	}
}

func TestRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)

	got, _ := repo.Get(ctx, ev.ID)
	got.Title = "mutated"
	got.Attendees[0].RSVPStatus = RSVPDeclined

	again, _ := repo.Get(ctx, ev.ID)
	if again.Title != "Meetup" {
		t.Errorf("stored title mutated: %q", again.Title)
	}
	if again.Attendees[0].RSVPStatus != RSVPConfirmed {
		t.Errorf("stored attendee mutated: %q", again.Attendees[0].RSVPStatus)
	}
}

func TestRepoUpdatePreservesSecret(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)

	up, _ := repo.Get(ctx, ev.ID)
	up.Title = "Renamed"
	up.QRCodeData = "attacker-chosen"
	if err := repo.Update(ctx, up); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.Get(ctx, ev.ID)
	if got.Title != "Renamed" {
		t.Errorf("title = %q", got.Title)
	}
	if got.QRCodeData != ev.QRCodeData {
		t.Errorf("qr secret changed on update")
	}
}

func TestRepoListForUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()

	mine, _ := New("u1", "Mine", "", "", time.Now())
	repo.Create(ctx, mine)
	theirs, _ := New("u2", "Theirs", "", "", time.Now())
	repo.Create(ctx, theirs)
	invited, _ := New("u2", "Invited", "", "", time.Now())
	repo.Create(ctx, invited)
	repo.AddAttendee(ctx, invited.ID, "u1", RSVPPending)

	got, err := repo.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	titles := map[string]bool{}
	for _, ev := range got {
		titles[ev.Title] = true
	}
	if !titles["Mine"] || !titles["Invited"] {
		t.Errorf("titles = %v", titles)
	}
}

func TestRepoDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)

	if err := repo.Delete(ctx, ev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := repo.Delete(ctx, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}

func TestAddAttendeeIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)

	if err := repo.AddAttendee(ctx, ev.ID, "u2", RSVPPending); err != nil {
		t.Fatalf("AddAttendee: %v", err)
	}
	repo.UpdateAttendeeRSVP(ctx, ev.ID, "u2", RSVPConfirmed)
	// re-adding must not reset the status
	if err := repo.AddAttendee(ctx, ev.ID, "u2", RSVPPending); err != nil {
		t.Fatalf("AddAttendee again: %v", err)
	}
	got, _ := repo.Get(ctx, ev.ID)
	if got.Attendee("u2").RSVPStatus != RSVPConfirmed {
		t.Errorf("status reset by re-add: %q", got.Attendee("u2").RSVPStatus)
	}
}

func TestUpdateAttendeeRSVP(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)
	repo.AddAttendee(ctx, ev.ID, "u2", RSVPPending)

	if err := repo.UpdateAttendeeRSVP(ctx, ev.ID, "u2", RSVPDeclined); err != nil {
		t.Fatalf("UpdateAttendeeRSVP: %v", err)
	}
	got, _ := repo.Get(ctx, ev.ID)
	if got.Attendee("u2").RSVPStatus != RSVPDeclined {
		t.Errorf("status = %q", got.Attendee("u2").RSVPStatus)
	}
	if err := repo.UpdateAttendeeRSVP(ctx, ev.ID, "ghost", RSVPConfirmed); !errors.Is(err, ErrAttendeeNotFound) {
		t.Errorf("unknown guest = %v", err)
	}
}

func TestCheckInAttendeeOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo()
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	repo.Create(ctx, ev)
	repo.AddAttendee(ctx, ev.ID, "u2", RSVPConfirmed)

	at := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	if err := repo.CheckInAttendee(ctx, ev.ID, "u2", at); err != nil {
		t.Fatalf("CheckInAttendee: %v", err)
	}
	got, _ := repo.Get(ctx, ev.ID)
	att := got.Attendee("u2")
	if !att.CheckedIn || att.CheckedInAt == nil || !att.CheckedInAt.Equal(at) {
		t.Errorf("attendee = %+v", att)
	}
	if err := repo.CheckInAttendee(ctx, ev.ID, "u2", at.Add(time.Minute)); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("second check-in = %v, want ErrAlreadyCheckedIn", err)
	}
	if err := repo.CheckInAttendee(ctx, ev.ID, "ghost", at); !errors.Is(err, ErrAttendeeNotFound) {
		t.Errorf("unknown guest = %v", err)
	}
}

func TestRedacted(t *testing.T) {
	ev, _ := New("u1", "Meetup", "", "", time.Now())
	red := ev.Redacted()
	if red.QRCodeData != "" {
		t.Error("secret not redacted")
	}
	if ev.QRCodeData == "" {
		t.Error("original mutated")
	}
}
