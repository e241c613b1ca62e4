package jwt

import "github.com/golang-jwt/jwt"

// VideoGrant mirrors the "video" claim of a media-service access token.
// Only the fields the relay needs are decoded.
type VideoGrant struct {
	RoomJoin bool   `json:"roomJoin,omitempty"`
	Room     string `json:"room,omitempty"`
}

// Payload is the claim set of a media-service access token.
// Subject carries the participant identity and Issuer the API key that signed it.
type Payload struct {
	jwt.StandardClaims

	// Name is the participant's display name.
	Name string `json:"name,omitempty"`

	// Video holds the room grant.
	Video *VideoGrant `json:"video,omitempty"`
}

// Identity returns the participant identity carried by the token.
func (p *Payload) Identity() string {
	return p.Subject
}

// DisplayName returns Name, falling back to the identity.
func (p *Payload) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Subject
}

// CanJoin reports whether the token grants joining room.
func (p *Payload) CanJoin(room string) bool {
	return p.Video != nil && p.Video.RoomJoin && p.Video.Room == room
}
