package identity

import (
	"context"
	"testing"
	"time"
)

func TestMemoryUserRepo_CreateAndGet(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	user := &User{Username: "alice", Email: "Alice@Example.com"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q, want alice", got.Username)
	}

	// Email lookup is case-insensitive.
	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, user.ID)
	}
}

func TestMemoryUserRepo_DuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	if err := repo.Create(ctx, &User{Username: "a", Email: "a@example.com"}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := repo.Create(ctx, &User{Username: "b", Email: "A@Example.Com"}); err != ErrEmailExists {
		t.Errorf("Create() error = %v, want ErrEmailExists", err)
	}
}

func TestMemoryUserRepo_TokenLookups(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	user := &User{
		Username:           "alice",
		Email:              "alice@example.com",
		VerificationToken:  "verify-tok",
		ResetPasswordToken: "reset-tok",
	}
	repo.Create(ctx, user)

	if got, err := repo.GetByVerificationToken(ctx, "verify-tok"); err != nil || got.ID != user.ID {
		t.Errorf("GetByVerificationToken() = %v, %v", got, err)
	}
	if got, err := repo.GetByResetToken(ctx, "reset-tok"); err != nil || got.ID != user.ID {
		t.Errorf("GetByResetToken() = %v, %v", got, err)
	}
	if _, err := repo.GetByVerificationToken(ctx, ""); err != ErrUserNotFound {
		t.Errorf("empty token lookup error = %v, want ErrUserNotFound", err)
	}
}

func TestMemoryUserRepo_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	user := &User{Username: "alice", Email: "alice@example.com"}
	repo.Create(ctx, user)

	got, _ := repo.Get(ctx, user.ID)
	got.Username = "mutated"

	again, _ := repo.Get(ctx, user.ID)
	if again.Username != "alice" {
		t.Errorf("stored user mutated through returned copy")
	}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasherFast()

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	if err := h.Verify(hash, "s3cret"); err != nil {
		t.Errorf("Verify() with correct password: %v", err)
	}
	if err := h.Verify(hash, "wrong"); err != ErrInvalidPassword {
		t.Errorf("Verify() with wrong password = %v, want ErrInvalidPassword", err)
	}
	if err := h.Verify("not-a-hash", "s3cret"); err != ErrInvalidPassword {
		t.Errorf("Verify() with malformed hash = %v, want ErrInvalidPassword", err)
	}
}

func TestAuthenticate(t *testing.T) {
	h := NewPasswordHasherFast()
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	hash, _ := h.Hash("s3cret")
	repo.Create(ctx, &User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsVerified:   true,
	})

	if _, err := h.Authenticate(ctx, repo, "alice@example.com", "s3cret"); err != nil {
		t.Errorf("Authenticate() error: %v", err)
	}

	// Missing account and wrong password look the same to the caller.
	if _, err := h.Authenticate(ctx, repo, "nobody@example.com", "s3cret"); err != ErrInvalidPassword {
		t.Errorf("missing account error = %v, want ErrInvalidPassword", err)
	}
	if _, err := h.Authenticate(ctx, repo, "alice@example.com", "wrong"); err != ErrInvalidPassword {
		t.Errorf("wrong password error = %v, want ErrInvalidPassword", err)
	}
}

func TestAuthenticate_Unverified(t *testing.T) {
	h := NewPasswordHasherFast()
	repo := NewMemoryUserRepo()
	ctx := context.Background()

	hash, _ := h.Hash("s3cret")
	repo.Create(ctx, &User{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: hash,
	})

	if _, err := h.Authenticate(ctx, repo, "bob@example.com", "s3cret"); err != ErrNotVerified {
		t.Errorf("Authenticate() error = %v, want ErrNotVerified", err)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Verify() userID = %q, want user-1", userID)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), time.Hour)
	other := NewTokenIssuer([]byte("secret-b"), time.Hour)

	token, _ := issuer.Issue("user-1")
	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Minute)

	base := time.Now()
	issuer.now = func() time.Time { return base }
	token, _ := issuer.Issue("user-1")

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify() expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"no-at-sign", false},
		{"spaces in@example.com", false},
		{"missing@tld", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
