package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWireShape(t *testing.T) {
	data, err := Encode(&CaptionMessage{Text: "hello", IsFinal: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"caption","text":"hello","isFinal":true}`, string(data))

	data, err = Encode(&ReactionMessage{Emoji: "🎉"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reaction","emoji":"🎉"}`, string(data))

	_, err = Encode(nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	msg, ok := Decode([]byte(`{"type":"caption","text":"hel","isFinal":false}`))
	require.True(t, ok)
	assert.Equal(t, &CaptionMessage{Text: "hel"}, msg)

	msg, ok = Decode([]byte(`{"type":"reaction","emoji":"👍","extra":1}`))
	require.True(t, ok)
	assert.Equal(t, &ReactionMessage{Emoji: "👍"}, msg)
}

func TestDecodeDropsInvalid(t *testing.T) {
	for _, raw := range []string{
		``,
		`not json`,
		`{"type":"caption","text":5}`,
		`{"type":"reaction"}`,
		`{"type":"unknown","text":"x"}`,
		`{"text":"no type"}`,
		`["caption"]`,
	} {
		_, ok := Decode([]byte(raw))
		assert.False(t, ok, "input %q", raw)
	}
}
