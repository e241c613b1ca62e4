package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"callinvite/internal/pkg/lang"
	"callinvite/internal/pkg/logx"
	"callinvite/internal/pkg/mail"
	"callinvite/internal/pkg/randx"
)

const (
	// DefaultExpiry is the lifetime of an invite token.
	DefaultExpiry = 12 * time.Hour

	// DefaultConcurrency bounds how many recipients are processed at once.
	DefaultConcurrency = 4

	defaultBaseURL   = "http://localhost:3000"
	maxTokenAttempts = 3
	inviteSubject    = "You're invited to a video call"
)

// Option customises Service behaviour.
type Option func(*Service)

// WithClock injects a custom clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithExpiry overrides the invite token lifetime.
func WithExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithBaseURL configures the base URL used to build join links.
func WithBaseURL(url string) Option {
	return func(s *Service) {
		if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
			s.baseURL = url
		}
	}
}

// WithConcurrency sets how many recipients are processed in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service creates and validates invites.
type Service struct {
	store       Store
	mailer      mail.Mailer
	baseURL     string
	expiry      time.Duration
	concurrency int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService constructs a Service. A nil mailer behaves like a disabled one.
func NewService(store Store, mailer mail.Mailer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("invite service: store is required")
	}

	s := &Service{
		store:       store,
		mailer:      mailer,
		baseURL:     defaultBaseURL,
		expiry:      DefaultExpiry,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      logx.Component("invite"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// CreateInvites creates one room and one invite per distinct recipient, then mails
// each recipient their join link. Failures are reported per recipient; only a
// failure to create the room fails the whole call.
func (s *Service) CreateInvites(ctx context.Context, in CreateInvitesInput) (*Batch, error) {
	emails := NormalizeEmails(in.Emails)
	if len(emails) == 0 {
		return nil, ErrNoRecipients
	}

	roomName := strings.TrimSpace(in.RoomName)
	if roomName == "" {
		generated, err := randx.RoomName(s.now())
		if err != nil {
			return nil, fmt.Errorf("invite service: generate room name: %w", err)
		}
		roomName = generated
	}

	room := &Room{
		RoomName:        roomName,
		LiveKitRoomName: roomName,
		CaptionLang:     lang.Normalize(in.CaptionLang),
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("invite service: create room: %w", err)
	}

	logger := s.logger.With().Str("room_id", room.ID).Str("room_name", room.LiveKitRoomName).Logger()
	logger.Info().Int("recipients", len(emails)).Msg("Room created, issuing invites.")

	results := make([]Result, len(emails))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, email := range emails {
		g.Go(func() error {
			results[i] = s.inviteRecipient(ctx, logger, room, email)
			return nil
		})
	}
	_ = g.Wait()

	return &Batch{Room: room, Results: results}, nil
}

// inviteRecipient issues and delivers one invite. It never returns an error; the
// outcome is folded into the Result.
func (s *Service) inviteRecipient(ctx context.Context, logger zerolog.Logger, room *Room, email string) Result {
	result := Result{Email: email}

	inv, err := s.insertInvite(ctx, room, email)
	if err != nil {
		logger.Error().Err(err).Str("email", email).Msg("Failed to store invite.")
		result.Status = StatusFailed
		result.Error = err.Error()
		return result
	}

	link := s.JoinLink(inv.Token)

	if s.mailer == nil {
		logger.Info().Str("email", email).Str("join_link", link).Msg("Mail transport not configured, invite delivery simulated.")
		result.Status = StatusMockSent
		return result
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: inviteSubject,
		Body:    inviteBody(link, room, inv.ExpiresAt),
	})

	switch {
	case err == nil:
		result.Status = StatusSent
	case errors.Is(err, mail.ErrDisabled):
		logger.Info().Str("email", email).Str("join_link", link).Msg("Mail transport not configured, invite delivery simulated.")
		result.Status = StatusMockSent
	default:
		logger.Warn().Err(err).Str("email", email).Msg("Failed to deliver invite email.")
		result.Status = StatusFailed
		result.Error = err.Error()
	}

	return result
}

// insertInvite stores a fresh invite, drawing a new token on the unlikely event of a collision.
func (s *Service) insertInvite(ctx context.Context, room *Room, email string) (*Invite, error) {
	var lastErr error

	for range maxTokenAttempts {
		token, err := randx.InviteToken()
		if err != nil {
			return nil, err
		}

		now := s.now()
		inv := &Invite{
			RoomID:    room.ID,
			Email:     email,
			Token:     token,
			ExpiresAt: now.Add(s.expiry),
			CreatedAt: now,
		}

		err = s.store.CreateInvite(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// ValidateInvite resolves token to the room it grants access to.
// It returns ErrTokenRequired, ErrInviteNotFound or ErrInviteExpired when the token
// cannot be used. The invite is not modified, so validation is repeatable.
func (s *Service) ValidateInvite(ctx context.Context, token string) (*Validation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	if !randx.IsValidInviteToken(token) {
		return nil, ErrInviteNotFound
	}

	inv, room, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("invite service: lookup invite: %w", err)
	}

	if inv.Expired(s.now()) {
		return nil, ErrInviteExpired
	}

	captionLang := room.CaptionLang
	if captionLang == "" {
		captionLang = lang.Default
	}

	return &Validation{
		RoomName:    room.LiveKitRoomName,
		Email:       inv.Email,
		CaptionLang: captionLang,
		ExpiresAt:   inv.ExpiresAt,
	}, nil
}

// JoinLink builds the URL a recipient follows to join.
func (s *Service) JoinLink(token string) string {
	return s.baseURL + "/join/" + token
}

// NormalizeEmails trims and lower-cases addresses, dropping blanks and duplicates.
// The first occurrence keeps its position.
func NormalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	result := make([]string, 0, len(emails))

	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		result = append(result, email)
	}

	return result
}

func inviteBody(link string, room *Room, expiresAt time.Time) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "You have been invited to join the video call %q.\n\n", room.RoomName)
	b.WriteString("Join the call using the link below:\n")
	b.WriteString(link)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "This link expires at %s.\n", expiresAt.UTC().Format(time.RFC1123))
	return b.String()
}
