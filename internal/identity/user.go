// Package identity provides user accounts, password hashing, and API tokens.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already in use")
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotVerified     = errors.New("email not verified")
)

// emailRe is deliberately loose: one @, no whitespace, a dot in the domain.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has a plausible mailbox shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.ToLower(email))
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewActionToken returns a 40-char hex token for verification and password
// reset links.
func NewActionToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// User represents an account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // argon2id PHC string, never serialized
	IsVerified   bool      `json:"is_verified"`

	// VerificationToken is set at registration and cleared on verification.
	VerificationToken string `json:"-"`

	// ResetPasswordToken and its expiry are set per reset cycle.
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the public projection of a user, embedded in event and
// invitation responses.
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the public projection.
func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserRepo provides user storage operations.
type UserRepo interface {
	// Create creates a new user. Returns ErrEmailExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// Get retrieves a user by ID. Returns ErrUserNotFound if not found.
	Get(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive, trimmed).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByVerificationToken retrieves a user by pending verification token.
	GetByVerificationToken(ctx context.Context, token string) (*User, error)

	// GetByResetToken retrieves a user by password reset token.
	// Expiry is checked by the caller, not the repo.
	GetByResetToken(ctx context.Context, token string) (*User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error
}

// MemoryUserRepo stores users in memory with an email index.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	users   map[string]*User  // by ID
	byEmail map[string]string // normalized email -> ID
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepo) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	norm := NormalizeEmail(user.Email)
	if _, exists := r.byEmail[norm]; exists {
		return ErrEmailExists
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	u := *user
	r.users[user.ID] = &u
	r.byEmail[norm] = user.ID
	return nil
}

func (r *MemoryUserRepo) Get(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *r.users[id]
	return &u, nil
}

func (r *MemoryUserRepo) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.VerificationToken == token {
			u := *user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepo) GetByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ResetPasswordToken == token {
			u := *user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepo) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	oldNorm := NormalizeEmail(existing.Email)
	newNorm := NormalizeEmail(user.Email)
	if oldNorm != newNorm {
		if ownerID, exists := r.byEmail[newNorm]; exists && ownerID != user.ID {
			return ErrEmailExists
		}
		delete(r.byEmail, oldNorm)
		r.byEmail[newNorm] = user.ID
	}

	user.UpdatedAt = time.Now()
	u := *user
	r.users[user.ID] = &u
	return nil
}

var _ UserRepo = (*MemoryUserRepo)(nil)
