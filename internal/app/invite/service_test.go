package invite_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callinvite/internal/app/db/memory"
	"callinvite/internal/app/invite"
	"callinvite/internal/pkg/mail"
	"callinvite/internal/pkg/randx"
)

type recordingMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failTo[msg.To[0]]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, mail.Message) error { return mail.ErrDisabled }

// flakyStore fails CreateInvite for chosen emails and optionally CreateRoom.
type flakyStore struct {
	*memory.Store
	roomErr     error
	failEmails  map[string]error
	collisions  int
	mu          sync.Mutex
	inviteCalls int
}

func (s *flakyStore) CreateRoom(ctx context.Context, room *invite.Room) error {
	if s.roomErr != nil {
		return s.roomErr
	}
	return s.Store.CreateRoom(ctx, room)
}

func (s *flakyStore) CreateInvite(ctx context.Context, inv *invite.Invite) error {
	s.mu.Lock()
	s.inviteCalls++
	if s.collisions > 0 {
		s.collisions--
		s.mu.Unlock()
		return invite.ErrDuplicateToken
	}
	s.mu.Unlock()

	if err, ok := s.failEmails[inv.Email]; ok {
		return err
	}
	return s.Store.CreateInvite(ctx, inv)
}

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestCreateInvitesFiltersBlankEmails(t *testing.T) {
	store := memory.NewStore()
	svc, err := invite.NewService(store, nil)
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{
		Emails: []string{"a@x.com", "", "b@x.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.RoomCount())
	assert.Len(t, store.InvitesForRoom(batch.Room.ID), 2)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "a@x.com", batch.Results[0].Email)
	assert.Equal(t, "b@x.com", batch.Results[1].Email)
	for _, r := range batch.Results {
		assert.Equal(t, invite.StatusMockSent, r.Status)
	}
	assert.True(t, strings.HasPrefix(batch.Room.LiveKitRoomName, randx.RoomNamePrefix))
	assert.Equal(t, "en", batch.Room.CaptionLang)
}

func TestCreateInvitesNormalizesAndDedupes(t *testing.T) {
	store := memory.NewStore()
	svc, err := invite.NewService(store, disabledMailer{})
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{
		Emails:      []string{" A@X.com ", "a@x.com", "b@x.com"},
		RoomName:    "  weekly  ",
		CaptionLang: "es-MX",
	})
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "a@x.com", batch.Results[0].Email)
	assert.Equal(t, invite.StatusMockSent, batch.Results[0].Status)
	assert.Equal(t, "weekly", batch.Room.RoomName)
	assert.Equal(t, "weekly", batch.Room.LiveKitRoomName)
	assert.Equal(t, "es", batch.Room.CaptionLang)
}

func TestCreateInvitesRequiresRecipients(t *testing.T) {
	store := memory.NewStore()
	svc, err := invite.NewService(store, nil)
	require.NoError(t, err)

	for _, emails := range [][]string{nil, {}, {"", "   "}} {
		_, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{Emails: emails})
		assert.ErrorIs(t, err, invite.ErrNoRecipients)
	}
	assert.Equal(t, 0, store.RoomCount())
}

func TestCreateInvitesRoomFailure(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), roomErr: errors.New("db down")}
	svc, err := invite.NewService(store, nil)
	require.NoError(t, err)

	_, err = svc.CreateInvites(context.Background(), invite.CreateInvitesInput{Emails: []string{"a@x.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	assert.Equal(t, 0, store.inviteCalls)
}

func TestCreateInvitesIsolatesFailures(t *testing.T) {
	store := &flakyStore{
		Store:      memory.NewStore(),
		failEmails: map[string]error{"bad-insert@x.com": errors.New("insert failed")},
	}
	mailer := &recordingMailer{failTo: map[string]error{"bad-mail@x.com": errors.New("smtp 550")}}

	svc, err := invite.NewService(store, mailer, invite.WithBaseURL("https://call.example.com/"))
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{
		Emails: []string{"ok@x.com", "bad-insert@x.com", "bad-mail@x.com", "ok2@x.com"},
	})
	require.NoError(t, err)
	require.Len(t, batch.Results, 4)

	assert.Equal(t, invite.Result{Email: "ok@x.com", Status: invite.StatusSent}, batch.Results[0])
	assert.Equal(t, invite.StatusFailed, batch.Results[1].Status)
	assert.Equal(t, "insert failed", batch.Results[1].Error)
	assert.Equal(t, invite.StatusFailed, batch.Results[2].Status)
	assert.Equal(t, "smtp 550", batch.Results[2].Error)
	assert.Equal(t, invite.Result{Email: "ok2@x.com", Status: invite.StatusSent}, batch.Results[3])

	require.Len(t, mailer.sent, 2)
	for _, msg := range mailer.sent {
		assert.Contains(t, msg.Body, "https://call.example.com/join/")
	}

	// The invite whose mail failed is still stored and usable.
	assert.Len(t, store.InvitesForRoom(batch.Room.ID), 3)
}

func TestCreateInvitesRetriesTokenCollision(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), collisions: 1}
	svc, err := invite.NewService(store, nil, invite.WithConcurrency(1))
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{Emails: []string{"a@x.com"}})
	require.NoError(t, err)
	assert.Equal(t, invite.StatusMockSent, batch.Results[0].Status)
	assert.Equal(t, 2, store.inviteCalls)
}

func TestCreateInvitesTokensAreUnique(t *testing.T) {
	store := memory.NewStore()
	svc, err := invite.NewService(store, nil)
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{
		Emails: []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"},
	})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, inv := range store.InvitesForRoom(batch.Room.ID) {
		assert.True(t, randx.IsValidInviteToken(inv.Token))
		assert.False(t, seen[inv.Token])
		seen[inv.Token] = true
	}
	assert.Len(t, seen, 5)
}

func TestValidateInvite(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	svc, err := invite.NewService(store, nil, invite.WithClock(fixedClock(&now)))
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{
		Emails:      []string{"a@x.com"},
		RoomName:    "r1",
		CaptionLang: "de",
	})
	require.NoError(t, err)
	token := store.InvitesForRoom(batch.Room.ID)[0].Token

	for range 3 {
		v, err := svc.ValidateInvite(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "r1", v.RoomName)
		assert.Equal(t, "a@x.com", v.Email)
		assert.Equal(t, "de", v.CaptionLang)
		assert.Equal(t, now.Add(invite.DefaultExpiry), v.ExpiresAt)
	}

	now = now.Add(13 * time.Hour)
	for range 2 {
		_, err = svc.ValidateInvite(context.Background(), token)
		assert.ErrorIs(t, err, invite.ErrInviteExpired)
	}
}

func TestValidateInviteExpiresAtBoundary(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	svc, err := invite.NewService(store, nil,
		invite.WithClock(fixedClock(&now)),
		invite.WithExpiry(time.Hour),
	)
	require.NoError(t, err)

	batch, err := svc.CreateInvites(context.Background(), invite.CreateInvitesInput{Emails: []string{"a@x.com"}})
	require.NoError(t, err)
	token := store.InvitesForRoom(batch.Room.ID)[0].Token

	now = now.Add(time.Hour - time.Nanosecond)
	_, err = svc.ValidateInvite(context.Background(), token)
	assert.NoError(t, err)

	now = now.Add(time.Nanosecond)
	_, err = svc.ValidateInvite(context.Background(), token)
	assert.ErrorIs(t, err, invite.ErrInviteExpired)
}

func TestValidateInviteRejectsUnknownAndBlank(t *testing.T) {
	svc, err := invite.NewService(memory.NewStore(), nil)
	require.NoError(t, err)

	_, err = svc.ValidateInvite(context.Background(), "  ")
	assert.ErrorIs(t, err, invite.ErrTokenRequired)

	for range 2 {
		_, err = svc.ValidateInvite(context.Background(), "deadbeef")
		assert.ErrorIs(t, err, invite.ErrInviteNotFound)
	}
}

type lookupCountingStore struct {
	*memory.Store
	lookups int
}

func (s *lookupCountingStore) GetInviteByToken(ctx context.Context, token string) (*invite.Invite, *invite.Room, error) {
	s.lookups++
	return s.Store.GetInviteByToken(ctx, token)
}

func TestValidateInviteMalformedTokenSkipsStore(t *testing.T) {
	store := &lookupCountingStore{Store: memory.NewStore()}
	svc, err := invite.NewService(store, nil)
	require.NoError(t, err)

	for _, token := range []string{"deadbeef", strings.Repeat("z", 64), strings.Repeat("a", 65)} {
		_, err = svc.ValidateInvite(context.Background(), token)
		assert.ErrorIs(t, err, invite.ErrInviteNotFound, token)
	}
	assert.Zero(t, store.lookups)

	_, err = svc.ValidateInvite(context.Background(), strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, invite.ErrInviteNotFound)
	assert.Equal(t, 1, store.lookups)
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := invite.NewService(nil, nil)
	assert.Error(t, err)
}

func TestNormalizeEmails(t *testing.T) {
	got := invite.NormalizeEmails([]string{"", " B@x.com", "a@x.com", "b@X.COM"})
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, got)
}
