/*
Package relay implements the caption and reaction message protocol carried over a
room's data channel.

Every envelope is a UTF-8 JSON object with a "type" discriminator. Receivers are
liberal: malformed JSON or an unknown type is dropped without surfacing an error.

The package also contains the websocket hub that fans envelopes out to the other
members of a room, and a websocket client implementing DataChannel against it.
*/
package relay

import (
	"encoding/json"
	"errors"
)

// Envelope discriminators.
const (
	TypeCaption  = "caption"
	TypeReaction = "reaction"
)

// Message is a decoded envelope: *CaptionMessage or *ReactionMessage.
type Message interface {
	Type() string
}

// CaptionMessage carries one transcript update from a speaker.
type CaptionMessage struct {
	Text    string
	IsFinal bool
}

// Type implements Message.
func (*CaptionMessage) Type() string { return TypeCaption }

// ReactionMessage carries one emoji reaction.
type ReactionMessage struct {
	Emoji string
}

// Type implements Message.
func (*ReactionMessage) Type() string { return TypeReaction }

type captionWire struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type reactionWire struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// Encode serialises msg into its wire envelope.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *CaptionMessage:
		return json.Marshal(captionWire{Type: TypeCaption, Text: m.Text, IsFinal: m.IsFinal})
	case *ReactionMessage:
		return json.Marshal(reactionWire{Type: TypeReaction, Emoji: m.Emoji})
	case nil:
		return nil, errors.New("relay: nil message")
	default:
		return nil, errors.New("relay: unsupported message type " + msg.Type())
	}
}

// Decode parses an envelope. It reports false for malformed JSON, unknown
// discriminators and reactions without an emoji.
func Decode(data []byte) (Message, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, false
	}

	switch head.Type {
	case TypeCaption:
		var w captionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, false
		}
		return &CaptionMessage{Text: w.Text, IsFinal: w.IsFinal}, true

	case TypeReaction:
		var w reactionWire
		if err := json.Unmarshal(data, &w); err != nil || w.Emoji == "" {
			return nil, false
		}
		return &ReactionMessage{Emoji: w.Emoji}, true

	default:
		return nil, false
	}
}
