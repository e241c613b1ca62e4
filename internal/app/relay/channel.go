package relay

import (
	"context"
	"encoding/json"
)

// DataChannel is a room's broadcast facility. Reliable publishes are delivered in
// order per sender; unreliable ones are best effort.
type DataChannel interface {
	Publish(ctx context.Context, payload []byte, reliable bool) error
}

// Packet is an envelope received from another room member.
type Packet struct {
	// From is the sender's identity.
	From string
	// Name is the sender's display name.
	Name    string
	Payload []byte
}

// ClientFrame is what a member sends to the hub.
type ClientFrame struct {
	Reliable bool            `json:"reliable"`
	Payload  json.RawMessage `json:"payload"`
}

// HubFrame is what the hub delivers to members.
type HubFrame struct {
	From    string          `json:"from"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}
