// Package store provides persistence driver abstractions. A driver bundles
// the repositories for users, events and invitations behind one backend.
package store

import (
	"context"

	"github.com/gatherkit/gatherd/internal/events"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (open files, create tables).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite).
	Name() string

	Users() identity.UserRepo
	Events() events.EventRepo
	Invites() invites.InviteRepo
}
