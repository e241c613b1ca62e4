/*
Package access mints room-join credentials for the hosted media service.

Tokens are signed with the LiveKit API key and secret and grant join permission on
exactly one room. Validity is left at the signing library's default.
*/
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livekit/protocol/auth"
)

var (
	// ErrNotConfigured is returned when the key, secret or public URL is missing.
	ErrNotConfigured = errors.New("access: media service credentials are not configured")

	// ErrMissingRoomOrIdentity is returned when room or identity is blank.
	ErrMissingRoomOrIdentity = errors.New("access: room and identity are required")
)

// Credentials identify the media-service project tokens are issued for.
type Credentials struct {
	APIKey    string
	APISecret string
	URL       string
}

// Grant is an issued token and the URL clients connect to with it.
type Grant struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Issuer signs room-join tokens.
type Issuer struct {
	creds Credentials
}

// NewIssuer returns an Issuer. Missing credentials are reported per call, not here,
// so the rest of the server can run without media-service configuration.
func NewIssuer(creds Credentials) *Issuer {
	return &Issuer{creds: creds}
}

// Configured reports whether tokens can be issued.
func (i *Issuer) Configured() bool {
	return i.creds.APIKey != "" && i.creds.APISecret != "" && i.creds.URL != ""
}

// URL returns the public media-service URL.
func (i *Issuer) URL() string {
	return i.creds.URL
}

// IssueToken signs a token allowing identity to join room under the display name
// name, which defaults to identity.
func (i *Issuer) IssueToken(room, identity, name string) (*Grant, error) {
	room = strings.TrimSpace(room)
	identity = strings.TrimSpace(identity)
	if room == "" || identity == "" {
		return nil, ErrMissingRoomOrIdentity
	}

	if !i.Configured() {
		return nil, ErrNotConfigured
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = identity
	}

	token, err := auth.NewAccessToken(i.creds.APIKey, i.creds.APISecret).
		SetVideoGrant(&auth.VideoGrant{RoomJoin: true, Room: room}).
		SetIdentity(identity).
		SetName(name).
		ToJWT()
	if err != nil {
		return nil, fmt.Errorf("access: sign token: %w", err)
	}

	return &Grant{Token: token, URL: i.creds.URL}, nil
}
