package reaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"callinvite/internal/app/relay"
)

// ErrEmptyEmoji is returned by Send for a blank emoji.
var ErrEmptyEmoji = errors.New("reaction: emoji is required")

// Pipeline shows reactions and exchanges them with the room.
type Pipeline struct {
	board   *Board
	channel relay.DataChannel
}

// NewPipeline builds a Pipeline publishing on channel. A nil board gets a default one.
func NewPipeline(channel relay.DataChannel, board *Board) *Pipeline {
	if board == nil {
		board = NewBoard()
	}
	return &Pipeline{board: board, channel: channel}
}

// Board returns the display board.
func (p *Pipeline) Board() *Board {
	return p.board
}

// Send shows emoji locally at once, then publishes it reliably.
func (p *Pipeline) Send(ctx context.Context, emoji string) (Entry, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return Entry{}, ErrEmptyEmoji
	}

	entry := p.board.Add(emoji)

	payload, err := relay.Encode(&relay.ReactionMessage{Emoji: emoji})
	if err != nil {
		return entry, err
	}
	if err := p.channel.Publish(ctx, payload, true); err != nil {
		return entry, fmt.Errorf("reaction: publish: %w", err)
	}
	return entry, nil
}

// HandleRemote shows a reaction received from another member.
func (p *Pipeline) HandleRemote(msg *relay.ReactionMessage) {
	if msg == nil || msg.Emoji == "" {
		return
	}
	p.board.Add(msg.Emoji)
}

// Close stops all removal timers.
func (p *Pipeline) Close() {
	p.board.Close()
}
