/*
Package memory provides an in-process invite store used in development and tests.

Data lives only as long as the process. Every method is safe for concurrent use.
*/
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"callinvite/internal/app/invite"
)

// Store implements invite.Store on top of maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	rooms   map[string]invite.Room
	invites map[string]invite.Invite // keyed by token
	now     func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		rooms:   make(map[string]invite.Room),
		invites: make(map[string]invite.Invite),
		now:     time.Now,
	}
}

var _ invite.Store = (*Store)(nil)

// CreateRoom stores room, assigning ID and CreatedAt when empty.
func (s *Store) CreateRoom(ctx context.Context, room *invite.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("memory store: room is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = s.now()
	}
	s.rooms[room.ID] = *room
	return nil
}

// CreateInvite stores inv. The referenced room must exist and the token must be unused.
func (s *Store) CreateInvite(ctx context.Context, inv *invite.Invite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if inv == nil {
		return errors.New("memory store: invite is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[inv.RoomID]; !ok {
		return errors.New("memory store: room does not exist")
	}
	if _, ok := s.invites[inv.Token]; ok {
		return invite.ErrDuplicateToken
	}

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}
	s.invites[inv.Token] = *inv
	return nil
}

// GetInviteByToken returns copies of the invite and its room.
func (s *Store) GetInviteByToken(ctx context.Context, token string) (*invite.Invite, *invite.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invites[token]
	if !ok {
		return nil, nil, invite.ErrInviteNotFound
	}
	room, ok := s.rooms[inv.RoomID]
	if !ok {
		return nil, nil, invite.ErrInviteNotFound
	}

	return &inv, &room, nil
}

// RoomCount returns the number of stored rooms.
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// InvitesForRoom returns the invites referencing roomID, in no particular order.
func (s *Store) InvitesForRoom(roomID string) []invite.Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []invite.Invite
	for _, inv := range s.invites {
		if inv.RoomID == roomID {
			result = append(result, inv)
		}
	}
	return result
}
