/*
Package participant describes a member of a call room.

Identity is the stable key taken from the access token subject; Name is what other
members see next to captions.
*/
package participant

import "callinvite/internal/pkg/auth/jwt"

// Participant is the identity of a room member.
type Participant struct {
	// Identity uniquely identifies the member within a room.
	Identity string `json:"identity"`

	// Name is the display name, defaulting to Identity.
	Name string `json:"name"`
}

// FromPayload builds a Participant from verified access token claims.
func FromPayload(p *jwt.Payload) Participant {
	return Participant{Identity: p.Identity(), Name: p.DisplayName()}
}
