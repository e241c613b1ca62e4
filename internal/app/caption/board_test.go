package caption

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardMergesConsecutiveSameIdentity(t *testing.T) {
	b := NewBoard(0)

	b.Upsert("u1", "hel")
	b.Upsert("u1", "hello")

	assert.Equal(t, []Entry{{Identity: "u1", Text: "hello"}}, b.Entries())
}

func TestBoardInterleavedSpeakersBreakMerge(t *testing.T) {
	b := NewBoard(0)

	b.Upsert("u1", "hel")
	b.Upsert("u2", "hi")
	b.Upsert("u1", "hello")

	assert.Equal(t, []Entry{
		{Identity: "u1", Text: "hel"},
		{Identity: "u2", Text: "hi"},
		{Identity: "u1", Text: "hello"},
	}, b.Entries())
}

func TestBoardNeverExceedsCapacity(t *testing.T) {
	b := NewBoard(DefaultCapacity)

	for i := range 50 {
		b.Upsert(fmt.Sprintf("u%d", i%4), fmt.Sprintf("line %d", i))
		assert.LessOrEqual(t, b.Len(), DefaultCapacity)
	}

	entries := b.Entries()
	assert.Len(t, entries, 3)
	assert.Equal(t, "line 49", entries[2].Text)
	assert.Equal(t, "line 47", entries[0].Text)
}

func TestBoardApply(t *testing.T) {
	b := NewBoard(0)

	ref := b.Upsert("u1", "hello")
	assert.True(t, b.Apply(ref, "hola"))
	assert.Equal(t, "hola", b.Entries()[0].Text)

	// Rewritten since the ref was taken.
	stale := b.Upsert("u1", "good morning")
	b.Upsert("u1", "good morning all")
	assert.False(t, b.Apply(stale, "buenos días"))
	assert.Equal(t, "good morning all", b.Entries()[0].Text)

	// Evicted from the board.
	old := b.Upsert("u2", "x")
	b.Upsert("u3", "y")
	b.Upsert("u4", "z")
	b.Upsert("u5", "w")
	assert.False(t, b.Apply(old, "translated"))

	assert.False(t, b.Apply(Ref{}, "nothing"))
}
