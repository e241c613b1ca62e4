package caption

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"callinvite/internal/app/relay"
	"callinvite/internal/pkg/lang"
	"callinvite/internal/pkg/logx"
)

const (
	// LocalLabel is the identity shown for the local speaker.
	LocalLabel = "Me"

	// UnknownLabel is shown for remote captions without a sender identity.
	UnknownLabel = "Unknown"
)

// Transcript is one recognition result.
type Transcript struct {
	Text    string
	IsFinal bool
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithTranslator enables translation of final captions.
func WithTranslator(t Translator) Option {
	return func(p *Pipeline) { p.translator = t }
}

// WithTargetLanguage sets the initial display language.
func WithTargetLanguage(tag string) Option {
	return func(p *Pipeline) { p.target = lang.Normalize(tag) }
}

// WithOnChange registers fn to be called with the board contents after every change.
// Calls are serialised and must not feed captions back into the pipeline.
func WithOnChange(fn func([]Entry)) Option {
	return func(p *Pipeline) { p.onChange = fn }
}

// WithCapacity overrides the number of displayed captions.
func WithCapacity(n int) Option {
	return func(p *Pipeline) { p.board = NewBoard(n) }
}

// Pipeline publishes local transcripts, merges remote captions into the board and
// replaces final captions with their translation once it arrives.
type Pipeline struct {
	board      *Board
	channel    relay.DataChannel
	translator Translator
	source     string
	onChange   func([]Entry)
	notifyMu   sync.Mutex

	// mu protects target and closed.
	mu     sync.RWMutex
	target string
	closed bool

	// ctx scopes pending translations; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewPipeline builds a Pipeline publishing on channel.
func NewPipeline(channel relay.DataChannel, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		board:   NewBoard(DefaultCapacity),
		channel: channel,
		source:  lang.Default,
		target:  lang.Default,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logx.Component("caption"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Board returns the display board.
func (p *Pipeline) Board() *Board {
	return p.board
}

// SetTargetLanguage switches the display language and returns the resolved code.
// Captions already on the board are left as they are.
func (p *Pipeline) SetTargetLanguage(tag string) string {
	code := lang.Normalize(tag)

	p.mu.Lock()
	p.target = code
	p.mu.Unlock()

	return code
}

// TargetLanguage returns the current display language.
func (p *Pipeline) TargetLanguage() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.target
}

// HandleLocal shows a local transcript under LocalLabel and publishes it. Final
// transcripts are published reliably, interim ones unreliably. Blank text is ignored.
func (p *Pipeline) HandleLocal(ctx context.Context, t Transcript) error {
	if strings.TrimSpace(t.Text) == "" {
		return nil
	}

	p.show(LocalLabel, t.Text, t.IsFinal)

	payload, err := relay.Encode(&relay.CaptionMessage{Text: t.Text, IsFinal: t.IsFinal})
	if err != nil {
		return err
	}

	if err := p.channel.Publish(ctx, payload, t.IsFinal); err != nil {
		return fmt.Errorf("caption: publish: %w", err)
	}
	return nil
}

// HandleRemote merges a caption received from identity into the board.
func (p *Pipeline) HandleRemote(identity string, msg *relay.CaptionMessage) {
	if msg == nil {
		return
	}
	if identity == "" {
		identity = UnknownLabel
	}

	p.show(identity, msg.Text, msg.IsFinal)
}

// show puts text on the board immediately and, for final text, starts a background
// translation that replaces it if the entry is untouched when the result arrives.
func (p *Pipeline) show(identity, text string, final bool) {
	ref := p.board.Upsert(identity, text)
	p.notify()

	if !final || p.translator == nil {
		return
	}

	target := p.TargetLanguage()
	if target == p.source {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.translate(ref, text, target)
	}()
}

func (p *Pipeline) translate(ref Ref, text, target string) {
	translated, err := p.translator.Translate(p.ctx, text, p.source, target)
	if err != nil {
		if p.ctx.Err() == nil {
			p.logger.Warn().Err(err).Str("target", target).Msg("Translation failed, keeping original text.")
		}
		return
	}

	if p.ctx.Err() != nil || strings.TrimSpace(translated) == "" {
		return
	}

	if p.board.Apply(ref, translated) {
		p.notify()
	}
}

// notify reads the board under notifyMu so observer calls never go back in time.
func (p *Pipeline) notify() {
	if p.onChange == nil {
		return
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.onChange(p.board.Entries())
}

// Close discards pending translations and waits for them to return.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
