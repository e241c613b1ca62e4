package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"callinvite/internal/app/invite"
)

// querier is the subset of pgxpool.Pool used by Store.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	createRoomSQL = `
INSERT INTO rooms (room_name, livekit_room_name, caption_lang)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	createInviteSQL = `
INSERT INTO invites (room_id, email, token, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	getInviteByTokenSQL = `
SELECT i.id, i.room_id, i.email, i.token, i.expires_at, i.created_at,
       r.room_name, r.livekit_room_name, r.caption_lang, r.created_at
FROM invites i
JOIN rooms r ON r.id = i.room_id
WHERE i.token = $1`
)

// Store implements invite.Store on PostgreSQL.
type Store struct {
	q querier
}

// NewStore wraps a pool (or any compatible querier such as a transaction).
func NewStore(q querier) *Store {
	return &Store{q: q}
}

var _ invite.Store = (*Store)(nil)

// CreateRoom inserts room and fills in its ID and CreatedAt.
func (s *Store) CreateRoom(ctx context.Context, room *invite.Room) error {
	err := s.q.QueryRow(ctx, createRoomSQL, room.RoomName, room.LiveKitRoomName, room.CaptionLang).
		Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// CreateInvite inserts inv and fills in its ID and CreatedAt.
func (s *Store) CreateInvite(ctx context.Context, inv *invite.Invite) error {
	err := s.q.QueryRow(ctx, createInviteSQL, inv.RoomID, inv.Email, inv.Token, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return invite.ErrDuplicateToken
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetInviteByToken loads the invite with the exact token together with its room.
func (s *Store) GetInviteByToken(ctx context.Context, token string) (*invite.Invite, *invite.Room, error) {
	var (
		inv  invite.Invite
		room invite.Room
	)

	err := s.q.QueryRow(ctx, getInviteByTokenSQL, token).Scan(
		&inv.ID, &inv.RoomID, &inv.Email, &inv.Token, &inv.ExpiresAt, &inv.CreatedAt,
		&room.RoomName, &room.LiveKitRoomName, &room.CaptionLang, &room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, invite.ErrInviteNotFound
		}
		return nil, nil, fmt.Errorf("select invite: %w", err)
	}

	room.ID = inv.RoomID
	return &inv, &room, nil
}
