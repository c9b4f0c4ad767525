// Package memory implements an in-process persistence driver. Data lives
// for the life of the process; it is the default for development and tests.
package memory

import (
	"context"

	"github.com/gatherkit/gatherd/internal/events"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
	"github.com/gatherkit/gatherd/internal/store"
)

func init() {
	store.Register("memory", NewDriver)
}

// Driver implements store.Driver on the in-memory repositories.
type Driver struct {
	users  *identity.MemoryUserRepo
	events *events.MemoryEventRepo
	inv    *invites.MemoryInviteRepo
}

// NewDriver creates a new memory driver instance.
func NewDriver(_ *store.DriverConfig) (store.Driver, error) {
	return &Driver{
		users:  identity.NewMemoryUserRepo(),
		events: events.NewMemoryEventRepo(),
		inv:    invites.NewMemoryInviteRepo(),
	}, nil
}

func (d *Driver) Init(context.Context) error { return nil }

func (d *Driver) Close() error { return nil }

func (d *Driver) Name() string { return "memory" }

func (d *Driver) Users() identity.UserRepo { return d.users }

func (d *Driver) Events() events.EventRepo { return d.events }

func (d *Driver) Invites() invites.InviteRepo { return d.inv }
