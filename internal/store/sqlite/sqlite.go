// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gatherkit/gatherd/internal/events"
	"github.com/gatherkit/gatherd/internal/identity"
	"github.com/gatherkit/gatherd/internal/invites"
	"github.com/gatherkit/gatherd/internal/store"

	"github.com/google/uuid"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB

	users   *userStore
	events  *eventStore
	invites *inviteStore
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}
	return &Driver{dataDir: cfg.DataDir}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "gatherd.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.db = db

	if err := db.AutoMigrate(
		&userRow{},
		&eventRow{},
		&attendeeRow{},
		&invitationRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	d.users = &userStore{db: db}
	d.events = &eventStore{db: db}
	d.invites = &inviteStore{db: db}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Driver) Users() identity.UserRepo { return d.users }

func (d *Driver) Events() events.EventRepo { return d.events }

func (d *Driver) Invites() invites.InviteRepo { return d.invites }

// Row types are kept separate from the domain models so schema concerns
// (indexes, column types) never leak into domain code.

type userRow struct {
	ID                  string `gorm:"primaryKey"`
	Username            string
	Email               string `gorm:"uniqueIndex"`
	PasswordHash        string
	IsVerified          bool
	VerificationToken   string `gorm:"index"`
	ResetPasswordToken  string `gorm:"index"`
	ResetPasswordExpiry *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type eventRow struct {
	ID          string `gorm:"primaryKey"`
	CreatorID   string `gorm:"index"`
	Title       string
	Description string
	Location    string
	Date        time.Time
	QRCodeData  string `gorm:"uniqueIndex"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// attendeeRow mirrors one roster entry. The compound unique index keeps at
// most one entry per (event, guest) pair.
type attendeeRow struct {
	ID          uint   `gorm:"primaryKey"`
	EventID     string `gorm:"uniqueIndex:idx_attendee_event_guest;index"`
	GuestID     string `gorm:"uniqueIndex:idx_attendee_event_guest;index"`
	RSVPStatus  string
	CheckedIn   bool
	CheckedInAt *time.Time
}

type invitationRow struct {
	ID           string `gorm:"primaryKey"`
	EventID      string `gorm:"uniqueIndex:idx_invitation_event_guest;index"`
	GuestID      string `gorm:"uniqueIndex:idx_invitation_event_guest;index"`
	Token        string `gorm:"uniqueIndex"`
	Status       string
	CheckInToken string
	RespondedAt  *time.Time
	CheckedInAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// userStore implements identity.UserRepo.

type userStore struct {
	db *gorm.DB
}

func (s *userStore) Create(ctx context.Context, user *identity.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	norm := identity.NormalizeEmail(user.Email)
	var count int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("email = ?", norm).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return identity.ErrEmailExists
	}
	now := time.Now().UTC()
	user.Email = norm
	user.CreatedAt = now
	user.UpdatedAt = now
	return s.db.WithContext(ctx).Create(userToRow(user)).Error
}

func (s *userStore) Get(ctx context.Context, id string) (*identity.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.first(ctx, "email = ?", identity.NormalizeEmail(email))
}

func (s *userStore) GetByVerificationToken(ctx context.Context, token string) (*identity.User, error) {
	if token == "" {
		return nil, identity.ErrUserNotFound
	}
	return s.first(ctx, "verification_token = ?", token)
}

func (s *userStore) GetByResetToken(ctx context.Context, token string) (*identity.User, error) {
	if token == "" {
		return nil, identity.ErrUserNotFound
	}
	return s.first(ctx, "reset_password_token = ?", token)
}

func (s *userStore) Update(ctx context.Context, user *identity.User) error {
	user.UpdatedAt = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").Updates(userToRow(user))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (s *userStore) first(ctx context.Context, query string, arg any) (*identity.User, error) {
	var row userRow
	result := s.db.WithContext(ctx).First(&row, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, result.Error
	}
	return rowToUser(&row), nil
}

func userToRow(u *identity.User) *userRow {
	return &userRow{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		IsVerified:          u.IsVerified,
		VerificationToken:   u.VerificationToken,
		ResetPasswordToken:  u.ResetPasswordToken,
		ResetPasswordExpiry: u.ResetPasswordExpiry,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func rowToUser(r *userRow) *identity.User {
	return &identity.User{
		ID:                  r.ID,
		Username:            r.Username,
		Email:               r.Email,
		PasswordHash:        r.PasswordHash,
		IsVerified:          r.IsVerified,
		VerificationToken:   r.VerificationToken,
		ResetPasswordToken:  r.ResetPasswordToken,
		ResetPasswordExpiry: r.ResetPasswordExpiry,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// eventStore implements events.EventRepo.

type eventStore struct {
	db *gorm.DB
}

func (s *eventStore) Create(ctx context.Context, ev *events.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(eventToRow(ev)).Error; err != nil {
			return err
		}
		for i := range ev.Attendees {
			if err := tx.Create(attendeeToRow(ev.ID, &ev.Attendees[i])).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *eventStore) Get(ctx context.Context, id string) (*events.Event, error) {
	var row eventRow
	result := s.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, events.ErrEventNotFound
		}
		return nil, result.Error
	}
	ev := rowToEvent(&row)
	var atts []attendeeRow
	if err := s.db.WithContext(ctx).Where("event_id = ?", id).Order("id").Find(&atts).Error; err != nil {
		return nil, err
	}
	for i := range atts {
		ev.Attendees = append(ev.Attendees, rowToAttendee(&atts[i]))
	}
	return ev, nil
}

func (s *eventStore) ListForUser(ctx context.Context, userID string) ([]*events.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR id IN (?)", userID,
			s.db.Model(&attendeeRow{}).Select("event_id").Where("guest_id = ?", userID)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*events.Event, 0, len(rows))
	for i := range rows {
		ev, err := s.Get(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *eventStore) Update(ctx context.Context, ev *events.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	// qr_code_data is immutable after creation
	result := s.db.WithContext(ctx).Model(&eventRow{}).Where("id = ?", ev.ID).
		Select("title", "description", "location", "date", "updated_at").
		Updates(eventToRow(ev))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return events.ErrEventNotFound
	}
	return nil
}

func (s *eventStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&eventRow{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return events.ErrEventNotFound
		}
		return tx.Delete(&attendeeRow{}, "event_id = ?", id).Error
	})
}

func (s *eventStore) AddAttendee(ctx context.Context, eventID, guestID string, status events.RSVPStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&eventRow{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return events.ErrEventNotFound
		}
		if err := tx.Model(&attendeeRow{}).
			Where("event_id = ? AND guest_id = ?", eventID, guestID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&attendeeRow{
			EventID:    eventID,
			GuestID:    guestID,
			RSVPStatus: string(status),
		}).Error
	})
}

func (s *eventStore) UpdateAttendeeRSVP(ctx context.Context, eventID, guestID string, status events.RSVPStatus) error {
	result := s.db.WithContext(ctx).Model(&attendeeRow{}).
		Where("event_id = ? AND guest_id = ?", eventID, guestID).
		Update("rsvp_status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.attendeeMissingErr(ctx, eventID)
	}
	return nil
}

// CheckInAttendee flips checked_in in a single conditional UPDATE so that
// concurrent scans of the same credential cannot both succeed.
func (s *eventStore) CheckInAttendee(ctx context.Context, eventID, guestID string, at time.Time) error {
	at = at.UTC()
	result := s.db.WithContext(ctx).Model(&attendeeRow{}).
		Where("event_id = ? AND guest_id = ? AND checked_in = ?", eventID, guestID, false).
		Updates(map[string]any{"checked_in": true, "checked_in_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&attendeeRow{}).
		Where("event_id = ? AND guest_id = ?", eventID, guestID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return s.attendeeMissingErr(ctx, eventID)
	}
	return events.ErrAlreadyCheckedIn
}

func (s *eventStore) attendeeMissingErr(ctx context.Context, eventID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&eventRow{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return events.ErrEventNotFound
	}
	return events.ErrAttendeeNotFound
}

func eventToRow(ev *events.Event) *eventRow {
	return &eventRow{
		ID:          ev.ID,
		CreatorID:   ev.CreatorID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Date:        ev.Date,
		QRCodeData:  ev.QRCodeData,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

func rowToEvent(r *eventRow) *events.Event {
	return &events.Event{
		ID:          r.ID,
		CreatorID:   r.CreatorID,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Date:        r.Date,
		QRCodeData:  r.QRCodeData,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func attendeeToRow(eventID string, a *events.Attendee) *attendeeRow {
	return &attendeeRow{
		EventID:     eventID,
		GuestID:     a.GuestID,
		RSVPStatus:  string(a.RSVPStatus),
		CheckedIn:   a.CheckedIn,
		CheckedInAt: a.CheckedInAt,
	}
}

func rowToAttendee(r *attendeeRow) events.Attendee {
	return events.Attendee{
		GuestID:     r.GuestID,
		RSVPStatus:  events.RSVPStatus(r.RSVPStatus),
		CheckedIn:   r.CheckedIn,
		CheckedInAt: r.CheckedInAt,
	}
}

// inviteStore implements invites.InviteRepo.

type inviteStore struct {
	db *gorm.DB
}

func (s *inviteStore) Create(ctx context.Context, inv *invites.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&invitationRow{}).
			Where("event_id = ? AND guest_id = ?", inv.EventID, inv.GuestID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invites.ErrAlreadyInvited
		}
		if err := tx.Model(&invitationRow{}).Where("token = ?", inv.Token).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invites.ErrTokenExists
		}
		return tx.Create(invitationToRow(inv)).Error
	})
}

func (s *inviteStore) Get(ctx context.Context, id string) (*invites.Invitation, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *inviteStore) GetByToken(ctx context.Context, token string) (*invites.Invitation, error) {
	if token == "" {
		return nil, invites.ErrNotFound
	}
	return s.first(ctx, "token = ?", token)
}

func (s *inviteStore) GetByEventAndGuest(ctx context.Context, eventID, guestID string) (*invites.Invitation, error) {
	var row invitationRow
	result := s.db.WithContext(ctx).First(&row, "event_id = ? AND guest_id = ?", eventID, guestID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, invites.ErrNotFound
		}
		return nil, result.Error
	}
	return rowToInvitation(&row), nil
}

func (s *inviteStore) ListByEvent(ctx context.Context, eventID string) ([]*invites.Invitation, error) {
	var rows []invitationRow
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*invites.Invitation, 0, len(rows))
	for i := range rows {
		out = append(out, rowToInvitation(&rows[i]))
	}
	return out, nil
}

func (s *inviteStore) Update(ctx context.Context, inv *invites.Invitation) error {
	inv.UpdatedAt = time.Now().UTC()
	// identity fields (event, guest, token) are immutable
	result := s.db.WithContext(ctx).Model(&invitationRow{}).Where("id = ?", inv.ID).
		Select("status", "check_in_token", "responded_at", "checked_in_at", "updated_at").
		Updates(invitationToRow(inv))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return invites.ErrNotFound
	}
	return nil
}

func (s *inviteStore) DeleteByEvent(ctx context.Context, eventID string) error {
	return s.db.WithContext(ctx).Delete(&invitationRow{}, "event_id = ?", eventID).Error
}

func (s *inviteStore) first(ctx context.Context, query string, arg any) (*invites.Invitation, error) {
	var row invitationRow
	result := s.db.WithContext(ctx).First(&row, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, invites.ErrNotFound
		}
		return nil, result.Error
	}
	return rowToInvitation(&row), nil
}

func invitationToRow(inv *invites.Invitation) *invitationRow {
	return &invitationRow{
		ID:           inv.ID,
		EventID:      inv.EventID,
		GuestID:      inv.GuestID,
		Token:        inv.Token,
		Status:       string(inv.Status),
		CheckInToken: inv.CheckInToken,
		RespondedAt:  inv.RespondedAt,
		CheckedInAt:  inv.CheckedInAt,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func rowToInvitation(r *invitationRow) *invites.Invitation {
	return &invites.Invitation{
		ID:           r.ID,
		EventID:      r.EventID,
		GuestID:      r.GuestID,
		Token:        r.Token,
		Status:       invites.Status(r.Status),
		CheckInToken: r.CheckInToken,
		RespondedAt:  r.RespondedAt,
		CheckedInAt:  r.CheckedInAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
