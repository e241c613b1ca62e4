/*
Package caption drives live captions for one call: the bounded display board,
the pipeline that publishes local transcripts and merges remote ones, and the
supervisor that keeps speech recognition running.
*/
package caption

import "sync"

// DefaultCapacity is the number of captions kept on screen.
const DefaultCapacity = 3

// Entry is one displayed caption.
type Entry struct {
	Identity string `json:"identity"`
	Text     string `json:"text"`
}

// Ref points at one revision of a board entry. The zero Ref matches nothing.
type Ref struct {
	seq uint64
	rev uint64
}

type slot struct {
	Entry
	seq uint64
	rev uint64
}

// Board holds the most recent captions, oldest first.
type Board struct {
	mu       sync.Mutex
	slots    []slot
	capacity int
	nextSeq  uint64
}

// NewBoard returns a Board keeping at most capacity entries (DefaultCapacity when <= 0).
func NewBoard(capacity int) *Board {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board{capacity: capacity}
}

// Upsert replaces the text of the newest entry when it belongs to identity, and
// otherwise appends a new entry, dropping the oldest beyond capacity. Only the
// newest entry is considered, so another speaker in between starts a new entry.
func (b *Board) Upsert(identity, text string) Ref {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.slots); n > 0 && b.slots[n-1].Identity == identity {
		last := &b.slots[n-1]
		last.Text = text
		last.rev++
		return Ref{seq: last.seq, rev: last.rev}
	}

	b.nextSeq++
	b.slots = append(b.slots, slot{Entry: Entry{Identity: identity, Text: text}, seq: b.nextSeq})
	if over := len(b.slots) - b.capacity; over > 0 {
		b.slots = append(b.slots[:0:0], b.slots[over:]...)
	}

	return Ref{seq: b.nextSeq}
}

// Apply sets the text of the entry ref points at, provided it is still on the board
// and has not been rewritten since ref was taken. It reports whether it did.
func (b *Board) Apply(ref Ref, text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.slots {
		s := &b.slots[i]
		if s.seq != ref.seq {
			continue
		}
		if s.rev != ref.rev {
			return false
		}
		s.Text = text
		return true
	}

	return false
}

// Entries returns a copy of the board, oldest first.
func (b *Board) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]Entry, len(b.slots))
	for i, s := range b.slots {
		entries[i] = s.Entry
	}
	return entries
}

// Len returns the number of entries.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}
