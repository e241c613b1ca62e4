/*
Package reaction shows emoji reactions for a call.

Every reaction, local or remote, lives on the board for DisplayDuration and is then
removed by its own timer.
*/
package reaction

import (
	"math/rand/v2"
	"sync"
	"time"

	"callinvite/internal/pkg/randx"
)

const (
	// DisplayDuration is how long a reaction stays visible.
	DisplayDuration = 3000 * time.Millisecond

	minLeft  = 10.0
	leftSpan = 80.0
	maxDelay = 500 * time.Millisecond
)

// PresetEmojis are offered by the reaction picker.
var PresetEmojis = []string{"👍", "❤️", "😂", "😮", "👏", "🎉", "🔥", "👋"}

// Entry is one floating reaction.
type Entry struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
	// Left is the horizontal position in percent, within [10, 90).
	Left float64 `json:"left"`
	// Delay is the animation start delay, within [0, 500ms).
	Delay time.Duration `json:"delay"`
}

// BoardOption customises a Board.
type BoardOption func(*Board)

// WithDuration overrides DisplayDuration.
func WithDuration(d time.Duration) BoardOption {
	return func(b *Board) {
		if d > 0 {
			b.duration = d
		}
	}
}

// WithOnChange registers fn to be called with the board contents after every change.
// Calls are serialised; fn must not add to the board.
func WithOnChange(fn func([]Entry)) BoardOption {
	return func(b *Board) { b.onChange = fn }
}

// WithRand replaces the source of placement randomness; fn returns values in [0, 1).
func WithRand(fn func() float64) BoardOption {
	return func(b *Board) {
		if fn != nil {
			b.rand = fn
		}
	}
}

// Board holds the visible reactions in arrival order.
type Board struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	entries  []Entry
	timers   map[string]*time.Timer
	closed   bool
	duration time.Duration
	rand     func() float64
	onChange func([]Entry)
}

// NewBoard returns an empty Board.
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{
		timers:   make(map[string]*time.Timer),
		duration: DisplayDuration,
		rand:     rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add shows emoji with a random position and delay and schedules its removal.
// After Close the entry is returned but not shown.
func (b *Board) Add(emoji string) Entry {
	entry := Entry{
		ID:    randx.EntryID(),
		Emoji: emoji,
		Left:  b.rand()*leftSpan + minLeft,
		Delay: time.Duration(b.rand() * float64(maxDelay)),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return entry
	}
	b.entries = append(b.entries, entry)
	b.timers[entry.ID] = time.AfterFunc(b.duration, func() { b.remove(entry.ID) })
	b.mu.Unlock()

	b.notify()
	return entry
}

func (b *Board) remove(id string) {
	b.mu.Lock()
	if _, ok := b.timers[id]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.timers, id)

	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	b.notify()
}

// Entries returns a copy of the visible reactions.
func (b *Board) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Close stops every removal timer and clears the board. It is idempotent.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	b.entries = nil
}

func (b *Board) snapshotLocked() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// notify hands the observer a snapshot taken after the change. notifyMu keeps
// observer calls in order, so the last call always sees the latest board.
func (b *Board) notify() {
	if b.onChange == nil {
		return
	}

	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	b.onChange(b.Entries())
}
