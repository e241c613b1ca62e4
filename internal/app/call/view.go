/*
Package call holds the state of one active call view: the caption and reaction
pipelines, the recognizer supervisor, and the routing of inbound packets.

All session state lives in the View; nothing is shared between calls.
*/
package call

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"callinvite/internal/app/caption"
	"callinvite/internal/app/reaction"
	"callinvite/internal/app/relay"
	"callinvite/internal/pkg/logx"
)

var (
	// ErrClosed is returned when the view has been closed.
	ErrClosed = errors.New("call: view closed")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("call: recognizer already started")
)

// Options configures a View.
type Options struct {
	// Translator enables caption translation. Nil disables it.
	Translator caption.Translator

	// TargetLanguage is the initial caption language.
	TargetLanguage string

	// OnCaptions and OnReactions observe board changes. They must not call Close.
	OnCaptions  func([]caption.Entry)
	OnReactions func([]reaction.Entry)

	// ReactionDuration overrides reaction.DisplayDuration.
	ReactionDuration time.Duration
}

// Snapshot is the displayable state of a View.
type Snapshot struct {
	Captions       []caption.Entry  `json:"captions"`
	Reactions      []reaction.Entry `json:"reactions"`
	TargetLanguage string           `json:"targetLanguage"`
}

// View is the controller for one active call.
type View struct {
	captions  *caption.Pipeline
	reactions *reaction.Pipeline

	mu         sync.Mutex
	supervisor *caption.Supervisor
	closed     bool

	logger zerolog.Logger
}

// NewView wires both pipelines to channel.
func NewView(channel relay.DataChannel, opts Options) *View {
	captionOpts := []caption.Option{
		caption.WithTargetLanguage(opts.TargetLanguage),
	}
	if opts.Translator != nil {
		captionOpts = append(captionOpts, caption.WithTranslator(opts.Translator))
	}
	if opts.OnCaptions != nil {
		captionOpts = append(captionOpts, caption.WithOnChange(opts.OnCaptions))
	}

	boardOpts := []reaction.BoardOption{reaction.WithDuration(opts.ReactionDuration)}
	if opts.OnReactions != nil {
		boardOpts = append(boardOpts, reaction.WithOnChange(opts.OnReactions))
	}

	return &View{
		captions:  caption.NewPipeline(channel, captionOpts...),
		reactions: reaction.NewPipeline(channel, reaction.NewBoard(boardOpts...)),
		logger:    logx.Component("call_view"),
	}
}

// HandlePacket decodes an inbound packet and routes it by type. Undecodable
// packets are dropped.
func (v *View) HandlePacket(p relay.Packet) {
	if v.isClosed() {
		return
	}

	msg, ok := relay.Decode(p.Payload)
	if !ok {
		v.logger.Debug().Str("from", p.From).Msg("Dropping undecodable packet.")
		return
	}

	switch m := msg.(type) {
	case *relay.CaptionMessage:
		v.captions.HandleRemote(p.From, m)
	case *relay.ReactionMessage:
		v.reactions.HandleRemote(m)
	}
}

// Run dispatches packets until the channel closes or ctx is done.
func (v *View) Run(ctx context.Context, packets <-chan relay.Packet) error {
	for {
		select {
		case p, ok := <-packets:
			if !ok {
				return nil
			}
			v.HandlePacket(p)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start begins supervised speech recognition, feeding results into the caption pipeline.
func (v *View) Start(ctx context.Context, rec caption.Recognizer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}
	if v.supervisor != nil {
		return ErrAlreadyStarted
	}

	v.supervisor = caption.NewSupervisor(rec, func(ctx context.Context, t caption.Transcript) {
		if err := v.captions.HandleLocal(ctx, t); err != nil {
			v.logger.Warn().Err(err).Bool("final", t.IsFinal).Msg("Failed to publish caption.")
		}
	})
	v.supervisor.Start(ctx)
	return nil
}

// SendReaction shows emoji locally and broadcasts it.
func (v *View) SendReaction(ctx context.Context, emoji string) (reaction.Entry, error) {
	if v.isClosed() {
		return reaction.Entry{}, ErrClosed
	}
	return v.reactions.Send(ctx, emoji)
}

// SendCaption shows and publishes a transcript typed or produced outside the recognizer.
func (v *View) SendCaption(ctx context.Context, t caption.Transcript) error {
	if v.isClosed() {
		return ErrClosed
	}
	return v.captions.HandleLocal(ctx, t)
}

// SetTargetLanguage changes the caption language and returns the resolved code.
func (v *View) SetTargetLanguage(tag string) string {
	return v.captions.SetTargetLanguage(tag)
}

// Snapshot returns the current displayable state.
func (v *View) Snapshot() Snapshot {
	return Snapshot{
		Captions:       v.captions.Board().Entries(),
		Reactions:      v.reactions.Board().Entries(),
		TargetLanguage: v.captions.TargetLanguage(),
	}
}

// Close stops recognition, reaction timers and pending translations. It is idempotent.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	supervisor := v.supervisor
	v.mu.Unlock()

	if supervisor != nil {
		supervisor.Stop()
	}
	v.reactions.Close()
	v.captions.Close()
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
