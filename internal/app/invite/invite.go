/*
Package invite creates call rooms with per-recipient invite tokens and validates
those tokens when a recipient follows the join link.

A token stays valid until its expiry; validating it has no side effects.
*/
package invite

import (
	"context"
	"errors"
	"time"
)

// Delivery statuses reported per recipient.
const (
	StatusSent     = "sent"
	StatusMockSent = "mock-sent"
	StatusFailed   = "failed"
)

var (
	// ErrNoRecipients is returned when no non-blank email remains after normalisation.
	ErrNoRecipients = errors.New("invite: at least one email is required")

	// ErrTokenRequired is returned when validation is attempted with a blank token.
	ErrTokenRequired = errors.New("invite: token is required")

	// ErrInviteNotFound indicates no invite matches the provided token.
	ErrInviteNotFound = errors.New("invite: not found")

	// ErrInviteExpired indicates the invite token is past its expiry.
	ErrInviteExpired = errors.New("invite: expired")

	// ErrDuplicateToken is returned by a Store when a token collides with an existing one.
	ErrDuplicateToken = errors.New("invite: duplicate token")
)

// Room is one call session created per invite batch.
type Room struct {
	ID              string
	RoomName        string
	LiveKitRoomName string
	CaptionLang     string
	CreatedAt       time.Time
}

// Invite grants one recipient access to a Room until ExpiresAt.
type Invite struct {
	ID        string
	RoomID    string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the invite is no longer valid at now.
func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Store persists rooms and invites.
// CreateRoom and CreateInvite assign ID and CreatedAt when they are empty.
// GetInviteByToken returns ErrInviteNotFound for unknown tokens and
// CreateInvite returns ErrDuplicateToken on a token collision.
type Store interface {
	CreateRoom(ctx context.Context, room *Room) error
	CreateInvite(ctx context.Context, invite *Invite) error
	GetInviteByToken(ctx context.Context, token string) (*Invite, *Room, error)
}

// CreateInvitesInput is the request for one invite batch.
type CreateInvitesInput struct {
	Emails      []string
	RoomName    string
	CaptionLang string
}

// Result is the outcome for one recipient.
type Result struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Batch is the outcome of CreateInvites.
type Batch struct {
	Room    *Room
	Results []Result
}

// Validation is the outcome of a successful ValidateInvite.
type Validation struct {
	// RoomName is the media-service room the invite grants access to.
	RoomName    string
	Email       string
	CaptionLang string
	ExpiresAt   time.Time
}
